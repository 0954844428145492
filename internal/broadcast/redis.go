package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "hot-seat:"

// Redis carries messages between server instances over redis pub/sub.
type Redis struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedis connects to redisURL and checks the connection.
func NewRedis(redisURL string, log *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{rdb: rdb, log: log}, nil
}

func (r *Redis) Publish(ctx context.Context, topic, event string, payload any) error {
	msg, err := newMessage(topic, event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, channelPrefix+topic, data).Err()
}

func (r *Redis) Subscribe(ctx context.Context, topic string, events ...string) (<-chan Message, func(), error) {
	pubsub := r.rdb.Subscribe(ctx, channelPrefix+topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan Message, subscriberBuffer)
	done := make(chan struct{})
	incoming := pubsub.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case raw, ok := <-incoming:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					r.log.Warn("dropping malformed broadcast", zap.String("topic", topic), zap.Error(err))
					continue
				}
				if !matches(events, msg.Event) {
					continue
				}
				select {
				case out <- msg:
				default:
				}
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r.rdb != nil {
		return r.rdb.Close()
	}
	return nil
}
