package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"quill/internal/featureflags"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	channel string
	payload string
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func subscribe(t *testing.T, n *Notifier) <-chan received {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	out := make(chan received, 16)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		out <- received{channel: channel, payload: payload}
	}))
	return out
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:1", UserChannel(1))
	assert.Equal(t, "notifications:user:100", UserChannel(100))
}

func TestNotifierWithoutRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil, nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "x"))
	assert.NoError(t, n.PublishBroadcast(context.Background(), "x"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
	n.PublishPostCreated(context.Background(), []uint{1, 2}, PostCreatedPayload{PostID: 1})
	n.PublishNewFollower(context.Background(), 1, "leo")
}

func TestPublishPostCreatedReachesEachFollower(t *testing.T) {
	n := NewNotifier(newRedis(t), nil)
	msgs := subscribe(t, n)

	n.PublishPostCreated(context.Background(), []uint{2, 3}, PostCreatedPayload{PostID: 9, Author: "leo", Text: "hi"})

	got := map[string]Event{}
	for len(got) < 2 {
		select {
		case msg := <-msgs:
			var ev Event
			require.NoError(t, json.Unmarshal([]byte(msg.payload), &ev))
			got[msg.channel] = ev
		case <-time.After(2 * time.Second):
			t.Fatalf("only received %d events", len(got))
		}
	}

	require.Contains(t, got, "notifications:user:2")
	require.Contains(t, got, "notifications:user:3")
	ev := got["notifications:user:2"]
	assert.Equal(t, EventPostCreated, ev.Type)
	payload := ev.Payload.(map[string]any)
	assert.Equal(t, float64(9), payload["post_id"])
	assert.Equal(t, "leo", payload["author"])
}

func TestPublishNewFollower(t *testing.T) {
	n := NewNotifier(newRedis(t), nil)
	msgs := subscribe(t, n)

	n.PublishNewFollower(context.Background(), 5, "mia")

	select {
	case msg := <-msgs:
		assert.Equal(t, UserChannel(5), msg.channel)
		assert.JSONEq(t, `{"type":"new_follower","payload":{"follower":"mia"}}`, msg.payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestLiveFeedFlagOffSuppressesEvents(t *testing.T) {
	n := NewNotifier(newRedis(t), featureflags.NewManager("live_feed=off"))
	msgs := subscribe(t, n)

	n.PublishNewFollower(context.Background(), 5, "mia")
	require.NoError(t, n.PublishBroadcast(context.Background(), "marker"))

	select {
	case msg := <-msgs:
		assert.Equal(t, BroadcastChannel, msg.channel)
		assert.Equal(t, "marker", msg.payload)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast marker not received")
	}
}

func TestSubscriberStopsOnCancel(t *testing.T) {
	n := NewNotifier(newRedis(t), nil)
	ctx, cancel := context.WithCancel(context.Background())

	msgs := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		msgs <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "before"))
	assert.Eventually(t, func() bool { return len(msgs) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, n.PublishUser(context.Background(), 1, "after"))
	assert.Never(t, func() bool { return len(msgs) > 1 }, 200*time.Millisecond, 20*time.Millisecond)
}
