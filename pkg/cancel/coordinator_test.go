package cancel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBeginCancelsPrevious(t *testing.T) {
	c := NewCoordinator(context.Background())

	first, prev := c.Begin()
	assert.Nil(t, prev)
	assert.False(t, first.IsCanceled())

	second, prev := c.Begin()
	require.Same(t, first, prev)
	assert.True(t, first.IsCanceled())
	assert.False(t, second.IsCanceled())
	assert.Same(t, second, c.Current())
}

func TestCancelIdle(t *testing.T) {
	c := NewCoordinator(context.Background())

	tok, ok := c.Cancel()
	assert.False(t, ok)
	assert.Nil(t, tok)
	assert.False(t, c.Busy())
}

func TestCancelLive(t *testing.T) {
	c := NewCoordinator(context.Background())
	live, _ := c.Begin()

	tok, ok := c.Cancel()
	require.True(t, ok)
	assert.Same(t, live, tok)
	assert.True(t, live.IsCanceled())
	assert.Nil(t, c.Current())

	select {
	case <-live.Context().Done():
	default:
		t.Fatal("context should be done after cancel")
	}
}

func TestReleaseStaleTokenKeepsCurrent(t *testing.T) {
	c := NewCoordinator(context.Background())
	old, _ := c.Begin()
	cur, _ := c.Begin()

	c.Release(old)
	assert.Same(t, cur, c.Current())

	c.Release(cur)
	assert.Nil(t, c.Current())
	assert.True(t, cur.IsCanceled())
}

func TestRootCancellationPropagates(t *testing.T) {
	root, stop := context.WithCancel(context.Background())
	c := NewCoordinator(root)
	tok, _ := c.Begin()

	stop()
	assert.True(t, tok.IsCanceled())
}

func TestAtMostOneLiveToken(t *testing.T) {
	c := NewCoordinator(context.Background())

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tokens []*Token
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, _ := c.Begin()
			mu.Lock()
			tokens = append(tokens, tok)
			mu.Unlock()
		}()
	}
	wg.Wait()

	live := 0
	for _, tok := range tokens {
		if !tok.IsCanceled() {
			live++
			assert.Same(t, c.Current(), tok)
		}
	}
	assert.Equal(t, 1, live)
	c.Cancel()
}
