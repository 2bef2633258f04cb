package dto

import (
	"sam-chat-be/internal/entity"
	"sam-chat-be/pkg/ai/mode"
)

type AttachmentRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Type string `json:"type" validate:"required"`
	Data string `json:"data" validate:"required,startswith=data:"`
}

func (r *AttachmentRequest) ToEntity() *entity.Attachment {
	if r == nil {
		return nil
	}
	return &entity.Attachment{Name: r.Name, Type: r.Type, Data: r.Data}
}

type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type SendMessageRequest struct {
	Text       string             `json:"text" validate:"max=32000"`
	Attachment *AttachmentRequest `json:"attachment,omitempty" validate:"omitempty"`
	Location   *LocationRequest   `json:"location,omitempty" validate:"omitempty"`
	// Wait blocks the request until the turn has finished.
	Wait bool `json:"wait"`
}

type SendMessageResponse struct {
	ChatId             string `json:"chatId"`
	UserMessageId      string `json:"userMessageId"`
	AssistantMessageId string `json:"assistantMessageId"`
	Outcome            string `json:"outcome,omitempty"`
}

type CreateChatResponse struct {
	Id string `json:"id"`
}

type RenameChatRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type SetModelRequest struct {
	ModelId string `json:"modelId" validate:"required"`
}

type CancelTurnResponse struct {
	Canceled bool `json:"canceled"`
}

type UpdateSettingsRequest struct {
	Theme       string `json:"theme" validate:"required,oneof=light dark"`
	Personality string `json:"personality" validate:"required,oneof=default amable directo divertido inteligente"`
	Profession  string `json:"profession" validate:"max=100"`
}

func (r *UpdateSettingsRequest) ToEntity() entity.Settings {
	return entity.Settings{
		Theme:       entity.Theme(r.Theme),
		Personality: entity.Personality(r.Personality),
		Profession:  r.Profession,
	}
}

type CatalogResponse struct {
	Modes  []mode.Mode  `json:"modes"`
	Models []mode.Model `json:"models"`
}
