package service

import "errors"

var (
	ErrChatNotFound      = errors.New("chat not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrUnknownMode       = errors.New("unknown mode")
	ErrUnknownModel      = errors.New("unknown model")
	ErrNoEssay           = errors.New("message has no essay")
	ErrInvalidAttachment = errors.New("invalid attachment")
	ErrInvalidSettings   = errors.New("invalid settings")
)
