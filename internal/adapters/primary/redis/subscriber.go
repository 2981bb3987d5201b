package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/infrastructure/redis"
)

type LocalBroadcaster interface {
	Deliver(ctx context.Context, event domain.Event) error
}

// Subscriber bridges the room-events channel to the local connection
// registry. One subscription per instance; redis preserves per-channel
// publish order, so deltas reach clients in revision order.
type Subscriber struct {
	redisClient      *redis.Client
	localBroadcaster LocalBroadcaster
}

func NewSubscriber(redisClient *redis.Client, localBroadcaster LocalBroadcaster) *Subscriber {
	return &Subscriber{
		redisClient:      redisClient,
		localBroadcaster: localBroadcaster,
	}
}

func (s *Subscriber) Subscribe(ctx context.Context, channel string) error {
	subscriber := s.redisClient.Subscribe(ctx, channel)

	if err := subscriber(func(msg redis.Message) error {
		var event domain.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			return fmt.Errorf("json.Unmarshal: %w", err)
		}

		if err := s.localBroadcaster.Deliver(ctx, event); err != nil {
			return fmt.Errorf("localBroadcaster.Deliver: %w", err)
		}

		return nil
	}); err != nil {
		slog.ErrorContext(ctx, "error subscribing to redis", "error", err)
		return fmt.Errorf("subscriber: %w", err)
	}

	return nil
}
