package implementation

import (
	"context"
	"errors"

	"sam-chat-be/internal/model"
	"sam-chat-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KeyValueRepositoryGormImpl struct {
	db *gorm.DB
}

// NewKeyValueRepositoryGorm migrates the kv_entries table and returns the repository.
func NewKeyValueRepositoryGorm(db *gorm.DB) (contract.KeyValueRepository, error) {
	if err := db.AutoMigrate(&model.KeyValueEntry{}); err != nil {
		return nil, err
	}
	return &KeyValueRepositoryGormImpl{db: db}, nil
}

func (r *KeyValueRepositoryGormImpl) Get(ctx context.Context, key string) (string, bool, error) {
	var m model.KeyValueEntry
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return m.Value, true, nil
}

func (r *KeyValueRepositoryGormImpl) Set(ctx context.Context, key, value string) error {
	m := &model.KeyValueEntry{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(m).Error
}

func (r *KeyValueRepositoryGormImpl) Remove(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&model.KeyValueEntry{}).Error
}
