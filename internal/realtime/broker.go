package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Event types delivered to clients
const (
	TypeEventsChanged = "events_changed"
	TypeNotification  = "notification"
	TypeMessage       = "message"
	TypeBadges        = "badges"
	TypeConnection    = "connection_changed"
)

// Channel is the Redis PUB/SUB channel shared by every API instance
const Channel = "entrepreneur:realtime"

// Event is a change notification. An empty UserIDs list means everybody.
type Event struct {
	Type      string      `json:"type"`
	UserIDs   []string    `json:"user_ids,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewEvent creates an event for the given users, or a broadcast when none are given
func NewEvent(eventType string, data interface{}, userIDs ...string) Event {
	return Event{
		Type:      eventType,
		UserIDs:   userIDs,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// IsBroadcast reports whether the event goes to every connected user
func (e Event) IsBroadcast() bool {
	return len(e.UserIDs) == 0
}

// Broker fans change notifications out to subscribers
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context) (<-chan Event, error)
}

const subscriberBuffer = 64

// LocalBroker delivers events inside the current process
type LocalBroker struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewLocalBroker creates a new in-process broker
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[chan Event]struct{})}
}

// Publish hands the event to every subscriber; slow subscribers drop it
func (b *LocalBroker) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			log.Warn().Str("type", event.Type).Msg("Realtime subscriber is full, dropping event")
		}
	}
	return nil
}

// Subscribe returns a channel closed when ctx is done
func (b *LocalBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch, nil
}

// RedisBroker shares events between instances over Redis PUB/SUB
type RedisBroker struct {
	client  *redis.Client
	channel string
}

// NewRedisBroker creates a broker publishing on the shared channel
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client, channel: Channel}
}

// Publish serialises the event and publishes it
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the shared channel until ctx is done
func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Error().Err(err).Msg("Failed to decode realtime event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
