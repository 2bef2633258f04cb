// Package cancel provides cancellation tokens and a coordinator that keeps at
// most one of them live at a time.
package cancel

import (
	"context"
	"sync"
)

// Token is handed to a unit of work; once canceled it stays canceled.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

func (t *Token) IsCanceled() bool {
	return t.ctx.Err() != nil
}

// Context is done when the token is canceled.
func (t *Token) Context() context.Context {
	return t.ctx
}

func (t *Token) Cancel() {
	t.cancel()
}

// Coordinator owns the single live token.
type Coordinator struct {
	mu      sync.Mutex
	root    context.Context
	current *Token
}

// NewCoordinator derives every token from root; canceling root cancels them all.
func NewCoordinator(root context.Context) *Coordinator {
	if root == nil {
		root = context.Background()
	}
	return &Coordinator{root: root}
}

// Begin cancels the live token, if any, and returns a fresh one together with
// the token it replaced.
func (c *Coordinator) Begin() (token *Token, previous *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous = c.current
	if previous != nil {
		previous.Cancel()
	}
	c.current = newToken(c.root)
	return c.current, previous
}

// Cancel cancels and clears the live token. It reports whether one was live.
func (c *Coordinator) Cancel() (*Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.current
	if t == nil {
		return nil, false
	}
	t.Cancel()
	c.current = nil
	return t, true
}

// Release clears t if it is still the live token. The token's context is
// released either way.
func (c *Coordinator) Release(t *Token) {
	if t == nil {
		return
	}
	c.mu.Lock()
	if c.current == t {
		c.current = nil
	}
	c.mu.Unlock()
	t.Cancel()
}

// Current returns the live token or nil.
func (c *Coordinator) Current() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Busy reports whether a live token exists.
func (c *Coordinator) Busy() bool {
	return c.Current() != nil
}
