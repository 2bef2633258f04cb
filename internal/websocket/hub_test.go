package websocket

import (
	"context"
	"testing"
	"time"

	"sam-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, id string, buffer int) *Client {
	return &Client{Hub: hub, Id: id, Send: make(chan []byte, buffer)}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	a := newTestClient(hub, "a", 4)
	b := newTestClient(hub, "b", 4)
	hub.register <- a
	hub.register <- b
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast([]byte(`{"type":"snapshot"}`))

	assert.Equal(t, `{"type":"snapshot"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"snapshot"}`, string(<-b.Send))
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := newTestClient(hub, "slow", 1)
	hub.register <- slow
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast([]byte("1"))
	hub.Broadcast([]byte("2"))

	assert.Equal(t, 0, hub.Count())
	assert.Equal(t, "1", string(<-slow.Send))
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestHub_UnregisterAndShutdownCloseChannels(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	gone := newTestClient(hub, "gone", 1)
	stays := newTestClient(hub, "stays", 1)
	hub.register <- gone
	hub.register <- stays
	hub.unregister <- gone
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	_, open := <-gone.Send
	assert.False(t, open)

	cancel()
	<-done
	_, open = <-stays.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.Count())
}
