package broadcast

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

type localSub struct {
	topic  string
	events []string
	ch     chan Message
}

// Local delivers messages within one process.
type Local struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*localSub
}

func NewLocal() *Local {
	return &Local{subs: make(map[int]*localSub)}
}

func (l *Local) Publish(_ context.Context, topic, event string, payload any) error {
	msg, err := newMessage(topic, event, payload)
	if err != nil {
		return err
	}
	l.deliver(msg)
	return nil
}

func (l *Local) deliver(msg Message) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, sub := range l.subs {
		if sub.topic != msg.Topic || !matches(sub.events, msg.Event) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

func (l *Local) Subscribe(_ context.Context, topic string, events ...string) (<-chan Message, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	sub := &localSub{topic: topic, events: events, ch: make(chan Message, subscriberBuffer)}
	l.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if _, ok := l.subs[id]; ok {
				delete(l.subs, id)
				close(sub.ch)
			}
		})
	}, nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, sub := range l.subs {
		delete(l.subs, id)
		close(sub.ch)
	}
	return nil
}
