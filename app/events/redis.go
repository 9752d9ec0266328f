package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "keepit:events"

var _ Publisher = (*RedisRelay)(nil)

// RedisRelay shares events between API instances. Publish goes to Redis only;
// every instance, the publisher included, delivers received messages to its
// local bus.
type RedisRelay struct {
	client  *redis.Client
	bus     *Bus
	channel string
}

func NewRedisRelay(addr string, bus *Bus) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &RedisRelay{client: client, bus: bus, channel: DefaultChannel}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, event Event) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Run relays channel messages into the local bus until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	slog.Info("Event relay started", "channel", r.channel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Event relay stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			event, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				slog.Warn("Dropping malformed event", "error", err)
				continue
			}
			r.bus.Deliver(event)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}

func encodeEvent(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return payload, nil
}

func decodeEvent(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.OwnerID == "" || event.Type == "" {
		return Event{}, fmt.Errorf("event is missing type or owner")
	}
	return event, nil
}
