package surface

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatingHostUnavailable(t *testing.T) {
	host := NewFloatingHost(false, nil)
	_, err := host.Acquire(context.Background(), Spec{TaskID: "t1"})
	require.ErrorIs(t, err, ErrSurfaceUnavailable)

	host = NewFloatingHost(true, func(context.Context) error {
		return errors.New("requires user activation")
	})
	_, err = host.Acquire(context.Background(), Spec{TaskID: "t1"})
	require.ErrorIs(t, err, ErrSurfaceUnavailable)
}

func TestWindowHostBlocked(t *testing.T) {
	_, err := NewWindowHost(false).Acquire(context.Background(), Spec{TaskID: "t1"})
	require.ErrorIs(t, err, ErrSurfaceBlocked)

	presenter, err := NewWindowHost(true).Acquire(context.Background(), Spec{TaskID: "t1"})
	require.NoError(t, err)
	stream, ok := presenter.(*StreamPresenter)
	require.True(t, ok)
	assert.Equal(t, ModeWindow, stream.Spec().Mode)
}

func TestStreamPresenterReplaysLatestFrame(t *testing.T) {
	p := NewStreamPresenter(Spec{SurfaceID: "s1", TaskID: "t1"})
	p.Render(Frame{RemainingTime: 10})
	p.Render(Frame{RemainingTime: 9})

	events, cancel := p.Watch(4)
	defer cancel()

	event := <-events
	assert.Equal(t, EventFrame, event.Name)
	assert.Equal(t, 9, event.Frame.RemainingTime)

	p.Focus()
	event = <-events
	assert.Equal(t, EventFocus, event.Name)
	assert.Equal(t, 1, p.FocusCount())
}

func TestStreamPresenterCloseEndsViewers(t *testing.T) {
	p := NewStreamPresenter(Spec{SurfaceID: "s1", TaskID: "t1"})
	events, _ := p.Watch(4)

	p.Close()
	p.Close()

	event, ok := <-events
	require.True(t, ok)
	assert.Equal(t, EventClosed, event.Name)

	_, ok = <-events
	assert.False(t, ok)

	select {
	case <-p.Closed():
	case <-time.After(time.Second):
		t.Fatal("presenter not closed")
	}

	late, cancel := p.Watch(1)
	cancel()
	_, ok = <-late
	assert.False(t, ok)
}

func TestStreamPresenterCancelWatch(t *testing.T) {
	p := NewStreamPresenter(Spec{SurfaceID: "s1"})
	events, cancel := p.Watch(1)
	cancel()
	cancel()

	_, ok := <-events
	assert.False(t, ok)

	p.Render(Frame{RemainingTime: 1})
	p.Close()
}
