package broadcaster

import (
	"context"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/infrastructure/redis"
)

// Broadcaster publishes room events on a redis pubsub channel. Redis keeps
// publish order per channel, so the revision order an actor emits is the
// order every subscriber fans out.
type Broadcaster struct {
	redisClient *redis.Client
	channel     string
}

func NewBroadcaster(redisClient *redis.Client, channel string) *Broadcaster {
	return &Broadcaster{redisClient: redisClient, channel: channel}
}

func (b *Broadcaster) Broadcast(ctx context.Context, event domain.Event) error {
	return b.redisClient.Publish(ctx, b.channel, event)
}
