package hub

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ChannelPrefix prefixes the Redis channel of every owner group.
const ChannelPrefix = "valuation:"

// Backplane fans published frames out to every server instance.
type Backplane interface {
	Publish(ctx context.Context, ownerID string, frame []byte) error
	// Subscribe blocks, calling deliver for each frame, until ctx is done.
	Subscribe(ctx context.Context, deliver func(ownerID string, frame []byte)) error
}

// RedisBackplane carries owner frames over Redis pub/sub.
type RedisBackplane struct {
	client *redis.Client
}

// NewRedisBackplane wraps an existing client.
func NewRedisBackplane(client *redis.Client) *RedisBackplane {
	return &RedisBackplane{client: client}
}

// Publish sends frame to the owner's channel.
func (b *RedisBackplane) Publish(ctx context.Context, ownerID string, frame []byte) error {
	if err := b.client.Publish(ctx, ChannelPrefix+ownerID, frame).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe listens on every owner channel until ctx is cancelled.
func (b *RedisBackplane) Subscribe(ctx context.Context, deliver func(ownerID string, frame []byte)) error {
	pubsub := b.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer pubsub.Close()

	// Wait for the subscription confirmation so a bad address fails fast.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	log.Info().Str("pattern", ChannelPrefix+"*").Msg("Redis backplane subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ownerID, found := strings.CutPrefix(msg.Channel, ChannelPrefix)
			if !found || ownerID == "" {
				continue
			}
			deliver(ownerID, []byte(msg.Payload))
		}
	}
}
