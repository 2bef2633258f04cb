package entity

import "time"

// PendingKind names the scripted interaction a chat is waiting on.
type PendingKind string

const (
	PendingEssayStructure PendingKind = "awaiting_essay_structure"
	PendingEssayTopic     PendingKind = "awaiting_essay_topic"
)

// PendingInteraction is set when the assistant asks a scripted question and
// cleared once the user's answer has been consumed.
type PendingInteraction struct {
	Kind            PendingKind    `json:"kind"`
	PromptMessageId string         `json:"promptMessageId"`
	Structure       EssayStructure `json:"structure,omitempty"`
}

type ChatSession struct {
	Id          string              `json:"id"`
	Title       string              `json:"title"`
	Messages    []*ChatMessage      `json:"messages"`
	IsTemporary bool                `json:"isTemporary,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	Pending     *PendingInteraction `json:"pending,omitempty"`
}

// FindMessage returns the message with the given id, or nil.
func (c *ChatSession) FindMessage(messageId string) *ChatMessage {
	for _, m := range c.Messages {
		if m.Id == messageId {
			return m
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil for an empty chat.
func (c *ChatSession) LastMessage() *ChatMessage {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Clone returns a deep copy that shares no mutable state with c.
func (c *ChatSession) Clone() *ChatSession {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = make([]*ChatMessage, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.Clone()
	}
	if c.Pending != nil {
		p := *c.Pending
		out.Pending = &p
	}
	return &out
}
