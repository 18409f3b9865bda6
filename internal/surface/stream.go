package surface

import (
	"context"
	"fmt"
	"sync"
)

const (
	EventFrame  = "frame"
	EventFocus  = "focus"
	EventClosed = "closed"
)

// Probe checks whether the floating capability can be acquired right now.
type Probe func(ctx context.Context) error

// StreamEvent is delivered to viewers of a stream presenter.
type StreamEvent struct {
	Name  string
	Frame Frame
}

// Watcher is implemented by presenters whose output can be followed remotely.
type Watcher interface {
	Watch(buffer int) (<-chan StreamEvent, func())
}

// StreamHost hands out presenters that stream frames to any number of viewers
// (the HTTP layer relays them as server-sent events).
type StreamHost struct {
	mode    Mode
	enabled bool
	probe   Probe
}

func NewFloatingHost(enabled bool, probe Probe) *StreamHost {
	return &StreamHost{mode: ModeFloating, enabled: enabled, probe: probe}
}

func NewWindowHost(allowed bool) *StreamHost {
	return &StreamHost{mode: ModeWindow, enabled: allowed}
}

func (h *StreamHost) Mode() Mode {
	return h.mode
}

func (h *StreamHost) Acquire(ctx context.Context, spec Spec) (Presenter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !h.enabled {
		if h.mode == ModeFloating {
			return nil, ErrSurfaceUnavailable
		}
		return nil, ErrSurfaceBlocked
	}

	if h.probe != nil {
		if err := h.probe(ctx); err != nil {
			if h.mode == ModeFloating {
				return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrSurfaceBlocked, err)
		}
	}

	spec.Mode = h.mode
	return NewStreamPresenter(spec), nil
}

type StreamPresenter struct {
	spec Spec

	mu         sync.Mutex
	last       *Frame
	viewers    map[chan StreamEvent]struct{}
	focusCount int
	closed     chan struct{}
	closeOnce  sync.Once
}

func NewStreamPresenter(spec Spec) *StreamPresenter {
	return &StreamPresenter{
		spec:    spec,
		viewers: make(map[chan StreamEvent]struct{}),
		closed:  make(chan struct{}),
	}
}

func (p *StreamPresenter) Spec() Spec {
	return p.spec
}

func (p *StreamPresenter) Render(frame Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &frame
	p.broadcastLocked(StreamEvent{Name: EventFrame, Frame: frame})
}

func (p *StreamPresenter) Focus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusCount++
	event := StreamEvent{Name: EventFocus}
	if p.last != nil {
		event.Frame = *p.last
	}
	p.broadcastLocked(event)
}

func (p *StreamPresenter) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		event := StreamEvent{Name: EventClosed}
		if p.last != nil {
			event.Frame = *p.last
		}
		p.broadcastLocked(event)
		viewers := p.viewers
		p.viewers = make(map[chan StreamEvent]struct{})
		close(p.closed)
		p.mu.Unlock()

		for ch := range viewers {
			close(ch)
		}
	})
}

func (p *StreamPresenter) Closed() <-chan struct{} {
	return p.closed
}

func (p *StreamPresenter) FocusCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focusCount
}

// Watch registers a viewer. The latest frame, if any, is replayed first. The
// returned channel is closed when the presenter closes or cancel is called.
func (p *StreamPresenter) Watch(buffer int) (<-chan StreamEvent, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan StreamEvent, buffer)

	p.mu.Lock()
	select {
	case <-p.closed:
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	if p.last != nil {
		ch <- StreamEvent{Name: EventFrame, Frame: *p.last}
	}
	p.viewers[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			_, ok := p.viewers[ch]
			delete(p.viewers, ch)
			p.mu.Unlock()
			if ok {
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (p *StreamPresenter) broadcastLocked(event StreamEvent) {
	for ch := range p.viewers {
		select {
		case ch <- event:
		default:
		}
	}
}
