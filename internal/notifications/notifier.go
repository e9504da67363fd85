// Package notifications delivers live feed events to websocket clients
// through redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"

	"quill/internal/featureflags"
	"quill/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Event types pushed to clients.
const (
	EventPostCreated = "post_created"
	EventNewFollower = "new_follower"
)

const (
	userChannelPrefix = "notifications:user:"
	// BroadcastChannel reaches every connected client.
	BroadcastChannel = "notifications:broadcast"
)

// Event is the JSON envelope written to websocket clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// PostCreatedPayload announces a new post to the author's followers.
type PostCreatedPayload struct {
	PostID uint   `json:"post_id"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// NewFollowerPayload tells an author who started following them.
type NewFollowerPayload struct {
	Follower string `json:"follower"`
}

// Notifier publishes events into redis channels. A nil redis client turns
// every publish into a no-op.
type Notifier struct {
	rdb   *redis.Client
	flags *featureflags.Manager
}

// NewNotifier creates a Notifier. flags may be nil, in which case every
// recipient gets events.
func NewNotifier(rdb *redis.Client, flags *featureflags.Manager) *Notifier {
	return &Notifier{rdb: rdb, flags: flags}
}

// UserChannel derives the redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

func (n *Notifier) live(userID uint) bool {
	return n.flags == nil || n.flags.Enabled(featureflags.LiveFeed, userID)
}

// PublishUser sends a raw payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a raw payload to every connected user.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

func (n *Notifier) publishEvent(ctx context.Context, userID uint, eventType string, payload any) error {
	if n == nil || n.rdb == nil || !n.live(userID) {
		return nil
	}
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return n.PublishUser(ctx, userID, string(data))
}

// PublishPostCreated pushes a post_created event to every follower.
// Failures are logged and the remaining followers are still notified.
func (n *Notifier) PublishPostCreated(ctx context.Context, followerIDs []uint, payload PostCreatedPayload) {
	for _, id := range followerIDs {
		if err := n.publishEvent(ctx, id, EventPostCreated, payload); err != nil {
			middleware.Logger.WarnContext(ctx, "publish post_created failed",
				"follower_id", id, "post_id", payload.PostID, "error", err)
		}
	}
}

// PublishNewFollower tells authorID that follower subscribed to them.
func (n *Notifier) PublishNewFollower(ctx context.Context, authorID uint, follower string) {
	if err := n.publishEvent(ctx, authorID, EventNewFollower, NewFollowerPayload{Follower: follower}); err != nil {
		middleware.Logger.WarnContext(ctx, "publish new_follower failed",
			"author_id", authorID, "error", err)
	}
}

// StartPatternSubscriber subscribes to every user channel and the broadcast
// channel, calling onMessage for each message until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", BroadcastChannel)
	// Wait for the subscription so publishes right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
