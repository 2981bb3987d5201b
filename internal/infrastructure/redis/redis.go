package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	*redis.Client
}

func NewClient(addr string) *Client {
	return &Client{Client: redis.NewClient(&redis.Options{Addr: addr})}
}

type Message = redis.Message

var ErrFailedToReceiveMessage = errors.New("failed to receive message")

func (c *Client) Subscribe(ctx context.Context, channel string) func(handler func(Message) error) error {
	pubsub := c.Client.Subscribe(ctx, channel)

	return func(handler func(Message) error) error {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				msg, err := pubsub.Receive(ctx)
				if err != nil {
					return fmt.Errorf("pubsub.Receive: %w: %w", ErrFailedToReceiveMessage, err)
				}

				switch m := msg.(type) {
				case *Message:
					if err := handler(*m); err != nil {
						return fmt.Errorf("handler: %w", err)
					}
				}
			}
		}
	}
}

var ErrKeyNotFound = errors.New("key not found")

// SetJSON stores a JSON-encoded value under key, without expiry.
func (c *Client) SetJSON(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := c.Client.Set(ctx, key, b, 0).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}

	return nil
}

func (c *Client) GetJSON(ctx context.Context, key string, target any) error {
	b, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrKeyNotFound
		}

		return fmt.Errorf("client.Get: %w", err)
	}

	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return nil
}

func (c *Client) Publish(ctx context.Context, channel string, message any) error {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := c.Client.Publish(ctx, channel, msgBytes).Err(); err != nil {
		return fmt.Errorf("client.Publish: %w", err)
	}

	return nil
}
