package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "conference:"

// feedMessage is what external consumers receive on a conference channel.
type feedMessage struct {
	ConferenceID string          `json:"conferenceId"`
	Instance     string          `json:"instance"`
	Event        json.RawMessage `json:"event"`
	At           int64           `json:"at"`
}

// RedisPubSub publishes room events to Redis so other services can follow a conference.
type RedisPubSub struct {
	client   *redis.Client
	instance string
	logger   *zap.Logger
}

// NewRedisPubSub creates the Redis event feed.
func NewRedisPubSub(client *redis.Client, instance string, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, instance: instance, logger: logger}
}

// ChannelFor returns the Redis channel of a conference.
func ChannelFor(conferenceID string) string {
	return channelPrefix + conferenceID
}

// PublishConferenceEvent publishes one encoded room event.
func (r *RedisPubSub) PublishConferenceEvent(ctx context.Context, conferenceID string, frame []byte) error {
	body, err := json.Marshal(feedMessage{
		ConferenceID: conferenceID,
		Instance:     r.instance,
		Event:        frame,
		At:           time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, ChannelFor(conferenceID), body).Err()
}

// SubscribeConference follows a conference channel and calls handler with each raw event
// until ctx is cancelled.
func (r *RedisPubSub) SubscribeConference(ctx context.Context, conferenceID string, handler func(event []byte)) error {
	pubsub := r.client.Subscribe(ctx, ChannelFor(conferenceID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m feedMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				r.logger.Warn("dropping feed message", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handler(m.Event)
		}
	}
}
