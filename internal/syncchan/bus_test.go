package syncchan

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestBroadcast_FanOut(t *testing.T) {
	bus := NewBroadcast(4)
	defer func() { _ = bus.Close() }()
	ctx := context.Background()

	first, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, Completion("t1", 60)))

	assert.Equal(t, Completion("t1", 60), receive(t, first))
	assert.Equal(t, Completion("t1", 60), receive(t, second))
}

func TestBroadcast_DropsWhenSubscriberFull(t *testing.T) {
	bus := NewBroadcast(1)
	defer func() { _ = bus.Close() }()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, StateChange("t1", 10, false)))
	require.NoError(t, bus.Publish(ctx, StateChange("t1", 5, false)))

	assert.Equal(t, 10, receive(t, sub).RemainingTime)
	select {
	case msg := <-sub.Messages():
		t.Fatalf("expected second message to be dropped, got %+v", msg)
	default:
	}
}

func TestBroadcast_RejectsInvalidMessage(t *testing.T) {
	bus := NewBroadcast(1)
	defer func() { _ = bus.Close() }()

	err := bus.Publish(context.Background(), Message{Type: "NOPE", TaskID: "t1"})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestBroadcast_CloseEndsSubscriptions(t *testing.T) {
	bus := NewBroadcast(1)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-sub.Messages()
	assert.False(t, ok)
	assert.NoError(t, sub.Close())
	assert.ErrorIs(t, bus.Publish(ctx, Completion("t1", 1)), ErrClosed)

	_, err = bus.Subscribe(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBroadcast_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBroadcast(2)
	defer func() { _ = bus.Close() }()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	require.NoError(t, bus.Publish(ctx, Completion("t1", 1)))
	_, ok := <-sub.Messages()
	assert.False(t, ok)
}

func setupRedisBus(t *testing.T) (*RedisBus, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	bus, err := NewRedisBus(context.Background(), mr.Addr(), "")
	require.NoError(t, err)
	return bus, mr
}

func TestNewRedisBus_InvalidAddress(t *testing.T) {
	_, err := NewRedisBus(context.Background(), "invalid:99999", "")
	assert.Error(t, err)
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	bus, mr := setupRedisBus(t)
	defer mr.Close()
	defer func() { _ = bus.Close() }()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, StateChange("t1", 55, true)))
	require.NoError(t, bus.Publish(ctx, Completion("t1", 60)))

	assert.Equal(t, StateChange("t1", 55, true), receive(t, sub))
	assert.Equal(t, Completion("t1", 60), receive(t, sub))
}

func TestRedisBus_SkipsForeignPayloads(t *testing.T) {
	bus, mr := setupRedisBus(t)
	defer mr.Close()
	defer func() { _ = bus.Close() }()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	mr.Publish(DefaultRedisChannel, `{"type":"SOMETHING_ELSE","taskId":"t1"}`)
	mr.Publish(DefaultRedisChannel, `garbage`)
	mr.Publish(DefaultRedisChannel, `{"type":"TIMER_STATE_CHANGE","taskId":"t1","remainingTime":-5}`)
	require.NoError(t, bus.Publish(ctx, Completion("t2", 30).From("s2")))

	assert.Equal(t, Completion("t2", 30).From("s2"), receive(t, sub))
}

func TestRedisBus_Close(t *testing.T) {
	bus, mr := setupRedisBus(t)
	defer mr.Close()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	select {
	case _, ok := <-sub.Messages():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
	assert.ErrorIs(t, bus.Publish(ctx, Completion("t1", 1)), ErrClosed)
}
