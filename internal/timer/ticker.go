package timer

import (
	"sync"
	"time"
)

// Ticker is a recurring tick source. Implementations must make Stop idempotent.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a tick source firing every d.
type TickerFactory func(d time.Duration) Ticker

type wallTicker struct {
	ticker *time.Ticker
	once   sync.Once
}

// NewTicker returns a wall-clock ticker. Missed ticks are dropped, not replayed.
func NewTicker(d time.Duration) Ticker {
	return &wallTicker{ticker: time.NewTicker(d)}
}

func (t *wallTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *wallTicker) Stop() {
	t.once.Do(t.ticker.Stop)
}

// ManualTicker fires only when Tick is called. Used to drive runtimes
// deterministically in tests and tools.
type ManualTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

func (t *ManualTicker) C() <-chan time.Time {
	return t.c
}

func (t *ManualTicker) Stop() {
	t.once.Do(func() {
		close(t.stopped)
	})
}

// Tick blocks until the consumer receives the tick or the ticker is stopped.
// It reports whether the tick was delivered.
func (t *ManualTicker) Tick() bool {
	select {
	case <-t.stopped:
		return false
	default:
	}

	select {
	case t.c <- time.Now():
		return true
	case <-t.stopped:
		return false
	}
}

// TickN delivers up to n ticks and returns how many were consumed.
func (t *ManualTicker) TickN(n int) int {
	delivered := 0
	for i := 0; i < n; i++ {
		if !t.Tick() {
			break
		}
		delivered++
	}
	return delivered
}

func (t *ManualTicker) Stopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// Done is closed once Stop has been called.
func (t *ManualTicker) Done() <-chan struct{} {
	return t.stopped
}
