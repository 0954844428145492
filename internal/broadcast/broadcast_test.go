package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type slideshowPayload struct {
	Index int `json:"index"`
}

func receive(t *testing.T, msgs <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-msgs:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return Message{}
	}
}

func assertNothing(t *testing.T, msgs <-chan Message) {
	t.Helper()
	select {
	case msg := <-msgs:
		t.Fatalf("unexpected message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func exercise(t *testing.T, b Broadcaster) {
	ctx := context.Background()
	topic := RoomTopic("r1")

	slides, cancelSlides, err := b.Subscribe(ctx, topic, EventSlideshow)
	require.NoError(t, err)
	defer cancelSlides()
	everything, cancelAll, err := b.Subscribe(ctx, topic)
	require.NoError(t, err)
	defer cancelAll()
	other, cancelOther, err := b.Subscribe(ctx, RoomTopic("r2"))
	require.NoError(t, err)
	defer cancelOther()

	require.NoError(t, b.Publish(ctx, topic, EventPlayerLeft, map[string]string{"playerId": "p2"}))
	require.NoError(t, b.Publish(ctx, topic, EventSlideshow, slideshowPayload{Index: 3}))

	msg := receive(t, slides)
	assert.Equal(t, EventSlideshow, msg.Event)
	var payload slideshowPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, 3, payload.Index)

	assert.Equal(t, EventPlayerLeft, receive(t, everything).Event)
	assert.Equal(t, EventSlideshow, receive(t, everything).Event)
	assertNothing(t, other)
}

func TestLocal(t *testing.T) {
	b := NewLocal()
	defer b.Close()
	exercise(t, b)
}

func TestLocalCancelClosesChannel(t *testing.T) {
	b := NewLocal()
	msgs, cancel, err := b.Subscribe(context.Background(), "room:r1")
	require.NoError(t, err)
	cancel()
	cancel()
	_, open := <-msgs
	assert.False(t, open)
	require.NoError(t, b.Publish(context.Background(), "room:r1", EventSlideshow, nil))
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedis("redis://"+mr.Addr(), zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Ping(context.Background()))
	exercise(t, b)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis("not a url", zap.NewNop())
	require.Error(t, err)
}
