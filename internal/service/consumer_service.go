package service

import (
	"context"
	"encoding/json"

	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Broadcaster delivers an encoded frame to every connected observer.
type Broadcaster interface {
	Broadcast(data []byte)
}

// IConsumerService turns session change notifications into state snapshots
// for observers.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber  message.Subscriber
	chat        IChatService
	broadcaster Broadcaster
	logger      logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	chat IChatService,
	broadcaster Broadcaster,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		chat:        chat,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// SnapshotFrame encodes the current state as a websocket frame.
func SnapshotFrame(chat IChatService) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type": "snapshot",
		"data": chat.State(),
	})
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, events.TopicSessionChanged)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	// Frames carry the state at processing time, never the message payload.
	defer msg.Ack()

	frame, err := SnapshotFrame(cs.chat)
	if err != nil {
		cs.logger.Error("CONSUMER", "Failed to encode snapshot", map[string]interface{}{"error": err.Error()})
		return
	}
	cs.broadcaster.Broadcast(frame)
}
