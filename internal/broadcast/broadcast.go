// Package broadcast is the ephemeral publish/subscribe channel. Messages are
// fire and forget: nothing is persisted and a slow subscriber misses messages.
package broadcast

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventPlayerLeft  = "player_left"
	EventSlideshow   = "slideshow"
	EventTransition  = "transition"
	EventAnswerAdded = "answer_submitted"
)

type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sentAt"`
}

type Broadcaster interface {
	Publish(ctx context.Context, topic, event string, payload any) error
	// Subscribe delivers messages on topic whose event is one of events, or
	// every message when events is empty. cancel stops delivery and closes
	// the channel.
	Subscribe(ctx context.Context, topic string, events ...string) (msgs <-chan Message, cancel func(), err error)
	Close() error
}

func RoomTopic(roomID string) string {
	return "room:" + roomID
}

func newMessage(topic, event string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: topic, Event: event, Payload: raw, SentAt: time.Now().UTC()}, nil
}

func matches(events []string, event string) bool {
	if len(events) == 0 {
		return true
	}
	for _, candidate := range events {
		if candidate == event {
			return true
		}
	}
	return false
}
