package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sam-chat-be/internal/entity"
	"sam-chat-be/internal/metrics"
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/internal/repository/memory"
	"sam-chat-be/pkg/ai/mode"
	"sam-chat-be/pkg/llm/llmtest"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameRecorder struct {
	frames chan []byte
}

func (r *frameRecorder) Broadcast(data []byte) {
	r.frames <- data
}

func TestConsumerService_BroadcastsSnapshotOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	log := logger.NewNopLogger()
	registry := mode.Default()
	store := memory.NewKeyValueRepository()
	sessions := NewSessionService(store, NewPublisherService(pubSub), log, SessionOptions{DefaultModel: registry.DefaultModel().Id})
	settings := NewSettingsService(store, log)
	client := llmtest.NewFakeClient()
	m := metrics.New(prometheus.NewRegistry())
	chat := NewChatService(ctx, sessions, settings, NewEssayService(client, registry, settings, testProModel, nil, log, m),
		registry, client, ModelNames{Fast: testFastModel, Pro: testProModel}, nil, m, log)
	defer chat.Shutdown()

	recorder := &frameRecorder{frames: make(chan []byte, 16)}
	consumer := NewConsumerService(pubSub, chat, recorder, log)
	require.NoError(t, consumer.Consume(ctx))

	created := sessions.CreateChat(true)

	select {
	case frame := <-recorder.frames:
		var decoded struct {
			Type string          `json:"type"`
			Data entity.Snapshot `json:"data"`
		}
		require.NoError(t, json.Unmarshal(frame, &decoded))
		assert.Equal(t, "snapshot", decoded.Type)
		assert.Equal(t, created, decoded.Data.ActiveChatId)
		assert.Len(t, decoded.Data.Chats, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot broadcast")
	}
}
