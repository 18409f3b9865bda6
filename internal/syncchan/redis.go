package syncchan

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"focus/backend/internal/metrics"
)

const DefaultRedisChannel = "focus:timer-sync"

// RedisBus broadcasts messages over Redis pub/sub. Redis gives no delivery
// guarantee to subscribers that are slow or disconnected, which matches the
// at-most-once contract of the channel.
type RedisBus struct {
	client  *redis.Client
	channel string
	buffer  int

	mu     sync.Mutex
	subs   map[*redisSub]struct{}
	closed bool
}

type redisSub struct {
	bus    *RedisBus
	pubsub *redis.PubSub
	ch     chan Message
	once   sync.Once
}

func NewRedisBus(ctx context.Context, addr, channel string) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if channel == "" {
		channel = DefaultRedisChannel
	}

	return &RedisBus{
		client:  client,
		channel: channel,
		buffer:  defaultBuffer,
		subs:    make(map[*redisSub]struct{}),
	}, nil
}

func (b *RedisBus) Publish(ctx context.Context, msg Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := Encode(msg)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish sync message: %w", err)
	}
	metrics.RecordSyncPublished(string(msg.Type))
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.mu.Unlock()

	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	sub := &redisSub{
		bus:    b,
		pubsub: pubsub,
		ch:     make(chan Message, b.buffer),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.pump(pubsub.Channel())
	return sub, nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*redisSub]struct{})
	b.mu.Unlock()

	for sub := range subs {
		_ = sub.shutdown()
	}
	return b.client.Close()
}

func (s *redisSub) pump(incoming <-chan *redis.Message) {
	defer close(s.ch)

	for raw := range incoming {
		msg, err := Decode([]byte(raw.Payload))
		if err != nil {
			log.Printf("sync: discard message: %v", err)
			continue
		}

		select {
		case s.ch <- msg:
		default:
			metrics.RecordSyncDropped("redis")
		}
	}
}

func (s *redisSub) Messages() <-chan Message {
	return s.ch
}

func (s *redisSub) Close() error {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	return s.shutdown()
}

func (s *redisSub) shutdown() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}
