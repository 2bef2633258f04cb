package events

import "time"

// Topic of the in-process bus carrying session change notifications.
const TopicSessionChanged = "session.changed"

const (
	TypeTurnStarted   = "TURN_STARTED"
	TypeTurnFinished  = "TURN_FINISHED"
	TypeEssayFinished = "ESSAY_FINISHED"
)

// NewTurnStarted is published once a turn has its placeholder message.
func NewTurnStarted(chatId, messageId, mode, model string) Event {
	return BaseEvent{
		Type: TypeTurnStarted,
		Data: map[string]interface{}{
			"chat_id":    chatId,
			"message_id": messageId,
			"mode":       mode,
			"model":      model,
		},
		OccurredAt: time.Now(),
	}
}

// NewTurnFinished carries the terminal outcome of a turn.
func NewTurnFinished(chatId, messageId, outcome string, duration time.Duration) Event {
	return BaseEvent{
		Type: TypeTurnFinished,
		Data: map[string]interface{}{
			"chat_id":     chatId,
			"message_id":  messageId,
			"outcome":     outcome,
			"duration_ms": duration.Milliseconds(),
		},
		OccurredAt: time.Now(),
	}
}

func NewEssayFinished(chatId, messageId, outcome string, sections int) Event {
	return BaseEvent{
		Type: TypeEssayFinished,
		Data: map[string]interface{}{
			"chat_id":    chatId,
			"message_id": messageId,
			"outcome":    outcome,
			"sections":   sections,
		},
		OccurredAt: time.Now(),
	}
}
