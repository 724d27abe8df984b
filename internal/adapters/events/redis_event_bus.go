package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	redisclient "github.com/pagewise/bookstore/backend/internal/infrastructure/clients/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 32

// channelSub is the Redis subscription of one channel and its local listeners
type channelSub struct {
	pubsub    *redis.PubSub
	listeners map[chan *entities.ReportEvent]struct{}
}

// RedisEventBus implements the EventBus interface using Redis Pub/Sub. One Redis
// subscription is shared by all local subscribers of a channel.
type RedisEventBus struct {
	client   *redisclient.Client
	mu       sync.RWMutex
	channels map[string]*channelSub
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:   client,
		channels: make(map[string]*channelSub),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish serializes the event and publishes it on channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.ReportEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("event_type", string(event.EventType)).Msg("published report event")
	return nil
}

// Subscribe returns a channel that receives events until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ReportEvent, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, errors.New("event bus is closed")
	}

	listener := make(chan *entities.ReportEvent, subscriberBuffer)

	b.mu.Lock()
	sub, exists := b.channels[channel]
	if !exists {
		sub = &channelSub{
			pubsub:    b.client.Client().Subscribe(b.ctx, channel),
			listeners: make(map[chan *entities.ReportEvent]struct{}),
		}
		b.channels[channel] = sub
		go b.receive(channel, sub)
	}
	sub.listeners[listener] = struct{}{}
	count := len(sub.listeners)
	b.mu.Unlock()

	log.Debug().Str("channel", channel).Int("subscribers", count).Msg("subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeListener(channel, sub, listener)
	}()

	return listener, nil
}

// receive fans Redis messages out to the local listeners of sub
func (b *RedisEventBus) receive(channel string, sub *channelSub) {
	defer b.drop(channel, sub)

	messages := sub.pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event entities.ReportEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed report event")
				continue
			}

			b.mu.RLock()
			for listener := range sub.listeners {
				select {
				case listener <- &event:
				default:
					log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) removeListener(channel string, sub *channelSub, listener chan *entities.ReportEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := sub.listeners[listener]; !ok {
		return
	}
	delete(sub.listeners, listener)
	close(listener)

	if len(sub.listeners) == 0 && b.channels[channel] == sub {
		delete(b.channels, channel)
		_ = sub.pubsub.Close()
		log.Debug().Str("channel", channel).Msg("closed subscription")
	}
}

// drop closes sub and its listeners. A newer subscription of the same channel is left alone.
func (b *RedisEventBus) drop(channel string, sub *channelSub) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for listener := range sub.listeners {
		close(listener)
		delete(sub.listeners, listener)
	}
	if b.channels[channel] == sub {
		delete(b.channels, channel)
	}
	if err := sub.pubsub.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	return nil
}

// Unsubscribe closes every local subscriber of channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.RLock()
	sub, ok := b.channels[channel]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := b.drop(channel, sub); err != nil {
		return err
	}
	log.Debug().Str("channel", channel).Msg("unsubscribed")
	return nil
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	subs := make(map[string]*channelSub, len(b.channels))
	for channel, sub := range b.channels {
		subs[channel] = sub
	}
	b.mu.RUnlock()

	var errs []error
	for channel, sub := range subs {
		if err := b.drop(channel, sub); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing event bus: %w", err)
	}

	log.Info().Msg("event bus closed")
	return nil
}
