package syncchan

import (
	"context"
	"sync"

	"focus/backend/internal/metrics"
)

const defaultBuffer = 64

// Bus is a broadcast transport for timer messages.
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context) (Subscription, error)
	Close() error
}

type Subscription interface {
	// Messages is closed when the subscription or the bus is closed.
	Messages() <-chan Message
	Close() error
}

// Broadcast is the in-process bus. Each subscriber has its own buffered
// queue; a full queue drops the message for that subscriber.
type Broadcast struct {
	mu     sync.Mutex
	subs   map[*broadcastSub]struct{}
	buffer int
	closed bool
}

type broadcastSub struct {
	bus  *Broadcast
	ch   chan Message
	once sync.Once
}

func NewBroadcast(buffer int) *Broadcast {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broadcast{
		subs:   make(map[*broadcastSub]struct{}),
		buffer: buffer,
	}
}

func (b *Broadcast) Publish(_ context.Context, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	delivered, err := Decode(data)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	metrics.RecordSyncPublished(string(msg.Type))
	for sub := range b.subs {
		select {
		case sub.ch <- delivered:
		default:
			metrics.RecordSyncDropped("memory")
		}
	}
	return nil
}

func (b *Broadcast) Subscribe(_ context.Context) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	sub := &broadcastSub{
		bus: b,
		ch:  make(chan Message, b.buffer),
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

func (b *Broadcast) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*broadcastSub]struct{})
	b.mu.Unlock()

	for sub := range subs {
		sub.closeChannel()
	}
	return nil
}

func (s *broadcastSub) Messages() <-chan Message {
	return s.ch
}

func (s *broadcastSub) Close() error {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	s.closeChannel()
	return nil
}

func (s *broadcastSub) closeChannel() {
	s.once.Do(func() {
		close(s.ch)
	})
}
