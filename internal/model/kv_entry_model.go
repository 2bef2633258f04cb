package model

import "time"

type KeyValueEntry struct {
	Key       string    `gorm:"type:text;primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KeyValueEntry) TableName() string {
	return "kv_entries"
}
