package service

import (
	"context"

	"sam-chat-be/internal/entity"
	"sam-chat-be/pkg/cancel"
)

type TurnOutcome string

const (
	OutcomeCompleted TurnOutcome = "completed"
	OutcomeErrored   TurnOutcome = "errored"
	OutcomeAborted   TurnOutcome = "aborted"
	// OutcomeScripted marks a turn answered with a canned reply, without a remote call.
	OutcomeScripted TurnOutcome = "scripted"
)

// Turn is the handle of one user input and its response cycle.
type Turn struct {
	ChatId             string `json:"chatId"`
	UserMessageId      string `json:"userMessageId"`
	AssistantMessageId string `json:"assistantMessageId"`

	done    chan struct{}
	outcome TurnOutcome
}

func newTurn(chatId, userMessageId string) *Turn {
	return &Turn{ChatId: chatId, UserMessageId: userMessageId, done: make(chan struct{})}
}

func (t *Turn) finish(outcome TurnOutcome) {
	t.outcome = outcome
	close(t.done)
}

// Done is closed once the turn reached its terminal outcome.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Outcome returns the terminal outcome, or "" while the turn is running.
func (t *Turn) Outcome() TurnOutcome {
	select {
	case <-t.done:
		return t.outcome
	default:
		return ""
	}
}

// Wait blocks until the turn finishes or ctx is done.
func (t *Turn) Wait(ctx context.Context) (TurnOutcome, error) {
	select {
	case <-t.done:
		return t.outcome, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// TurnScope binds the work of a running turn to its assistant message.
// Updates are refused once the token is canceled.
type TurnScope struct {
	Token     *cancel.Token
	ChatId    string
	MessageId string
	Model     string // backend model of the selected tier

	update func(fn func(*entity.ChatMessage)) bool
}

// Update applies fn to the turn's message and reports whether it was applied.
func (s *TurnScope) Update(fn func(*entity.ChatMessage)) bool {
	return s.update(fn)
}
