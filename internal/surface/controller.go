package surface

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"focus/backend/internal/metrics"
	"focus/backend/internal/model"
	"focus/backend/internal/syncchan"
	"focus/backend/internal/timer"
)

const (
	DefaultTickInterval  = time.Second
	DefaultStatusRefresh = 15 * time.Second
	DefaultSyncEvery     = 5
)

// CompleteFunc and StateChangeFunc receive the surface session that sent the
// message alongside its payload.
type CompleteFunc func(surfaceID, taskID string, actualTime int)

type StateChangeFunc func(surfaceID, taskID string, remainingTime int, isPaused bool)

type Config struct {
	Bus syncchan.Bus
	// Floating is optional. Without it every open goes straight to Window.
	Floating Host
	Window   Host
	Tokens   *TokenIssuer

	NewTicker     timer.TickerFactory
	TickInterval  time.Duration
	StatusRefresh time.Duration
	// SyncEvery is the number of advanced ticks between periodic state
	// broadcasts.
	SyncEvery int
	Now       func() time.Time
}

type OpenResult struct {
	SurfaceID string `json:"surfaceId"`
	TaskID    string `json:"taskId"`
	Mode      Mode   `json:"mode"`
	Reused    bool   `json:"reused"`
	Token     string `json:"token,omitempty"`
}

// Controller owns the single active surface and the main view's end of the
// sync channel.
type Controller struct {
	cfg           Config
	onComplete    CompleteFunc
	onStateChange StateChangeFunc

	sub        syncchan.Subscription
	listenDone chan struct{}

	mu      sync.Mutex
	current *runtime
}

func NewController(ctx context.Context, cfg Config, onComplete CompleteFunc, onStateChange StateChangeFunc) (*Controller, error) {
	if cfg.Bus == nil {
		return nil, errors.New("surface controller requires a sync bus")
	}
	if cfg.Window == nil {
		return nil, errors.New("surface controller requires a window host")
	}
	if onComplete == nil || onStateChange == nil {
		return nil, errors.New("surface controller requires sync callbacks")
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = timer.NewTicker
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.StatusRefresh <= 0 {
		cfg.StatusRefresh = DefaultStatusRefresh
	}
	if cfg.SyncEvery <= 0 {
		cfg.SyncEvery = DefaultSyncEvery
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	sub, err := cfg.Bus.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe to sync channel: %w", err)
	}

	c := &Controller{
		cfg:           cfg,
		onComplete:    onComplete,
		onStateChange: onStateChange,
		sub:           sub,
		listenDone:    make(chan struct{}),
	}
	go c.listen()
	return c, nil
}

func (c *Controller) listen() {
	defer close(c.listenDone)

	for msg := range c.sub.Messages() {
		switch msg.Type {
		case syncchan.TypeTaskComplete:
			c.onComplete(msg.SurfaceID, msg.TaskID, msg.ActualTime)
		case syncchan.TypeTimerStateChange:
			c.onStateChange(msg.SurfaceID, msg.TaskID, msg.RemainingTime, msg.IsPaused)
		}
	}
}

// OpenTimer presents a countdown for task. Opening the task that is already
// shown only focuses it; opening a different task replaces the current
// surface. The floating host is tried first and the window host once after
// it; ErrSurfaceBlocked is returned when neither can be acquired.
func (c *Controller) OpenTimer(ctx context.Context, task model.Task) (OpenResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current.alive() {
		if c.current.taskID() == task.ID {
			c.current.presenter.Focus()
			metrics.RecordSurfaceReused()
			return c.result(c.current, true)
		}
	}
	if c.current != nil {
		c.current.stop()
		c.current = nil
	}

	now := c.cfg.Now()
	session, err := timer.NewSession(task.ID, task.EstimatedTime, task.TimerState, now)
	if err != nil {
		return OpenResult{}, err
	}

	spec := Spec{
		SurfaceID: uuid.NewString(),
		TaskID:    task.ID,
		Title:     task.Title,
	}
	presenter, mode, err := c.acquire(ctx, spec)
	if err != nil {
		return OpenResult{}, err
	}

	rt := &runtime{
		id:        spec.SurfaceID,
		title:     task.Title,
		mode:      mode,
		session:   session,
		presenter: presenter,
		bus:       c.cfg.Bus,
		ticker:    c.cfg.NewTicker(c.cfg.TickInterval),
		status:    c.cfg.NewTicker(c.cfg.StatusRefresh),
		syncEvery: c.cfg.SyncEvery,
		now:       c.cfg.Now,
		commands:  make(chan command),
		done:      make(chan struct{}),
	}
	c.current = rt
	metrics.RecordSurfaceOpened(string(mode))
	go func() {
		defer metrics.RecordSurfaceClosed()
		rt.run()
	}()

	log.Printf("surface %s opened for task %s (%s)", rt.id, task.ID, mode)
	return c.result(rt, false)
}

func (c *Controller) acquire(ctx context.Context, spec Spec) (Presenter, Mode, error) {
	if c.cfg.Floating != nil {
		spec.Mode = ModeFloating
		presenter, err := c.cfg.Floating.Acquire(ctx, spec)
		if err == nil {
			return presenter, ModeFloating, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		log.Printf("floating surface unavailable, falling back to window: %v", err)
		metrics.RecordSurfaceFallback("rejected")
	} else {
		metrics.RecordSurfaceFallback("unsupported")
	}

	spec.Mode = ModeWindow
	presenter, err := c.cfg.Window.Acquire(ctx, spec)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		metrics.RecordSurfaceBlocked()
		if errors.Is(err, ErrSurfaceBlocked) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%w: %v", ErrSurfaceBlocked, err)
	}
	return presenter, ModeWindow, nil
}

func (c *Controller) result(rt *runtime, reused bool) (OpenResult, error) {
	result := OpenResult{
		SurfaceID: rt.id,
		TaskID:    rt.taskID(),
		Mode:      rt.mode,
		Reused:    reused,
	}
	if c.cfg.Tokens != nil {
		token, err := c.cfg.Tokens.Issue(rt.id, rt.taskID(), rt.mode)
		if err != nil {
			return OpenResult{}, fmt.Errorf("issue surface token: %w", err)
		}
		result.Token = token
	}
	return result, nil
}

// Cleanup closes the active surface, if any, and waits until its countdown
// has stopped. Safe to call repeatedly.
func (c *Controller) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}
	c.current.stop()
	c.current = nil
}

// IsActive reports whether a live surface is showing taskID.
func (c *Controller) IsActive(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.current.alive() && c.current.taskID() == taskID
}

// ActiveTask returns the task shown by the live surface, if there is one.
func (c *Controller) ActiveTask() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || !c.current.alive() {
		return "", false
	}
	return c.current.taskID(), true
}

// Control returns a handle for driving the live surface with the given ID.
func (c *Controller) Control(surfaceID string) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.id != surfaceID || !c.current.alive() {
		return nil, ErrSurfaceNotFound
	}
	return &Handle{rt: c.current}, nil
}

// ControlTask is Control keyed by the task being shown.
func (c *Controller) ControlTask(taskID string) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.taskID() != taskID || !c.current.alive() {
		return nil, ErrSurfaceNotFound
	}
	return &Handle{rt: c.current}, nil
}

// Close tears down the active surface and stops listening. The bus is owned
// by the caller; closing it ends the listener.
func (c *Controller) Close() error {
	c.Cleanup()
	return c.sub.Close()
}

// Done is closed once the sync listener has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.listenDone
}

// Handle drives a surface from its own side: the pause button, the complete
// button and the close control.
type Handle struct {
	rt *runtime
}

func (h *Handle) SurfaceID() string {
	return h.rt.id
}

func (h *Handle) TaskID() string {
	return h.rt.taskID()
}

func (h *Handle) TogglePause() (bool, error) {
	reply, err := h.rt.send(cmdTogglePause)
	if err != nil {
		return false, err
	}
	if !reply.ok {
		return false, ErrSurfaceClosed
	}
	return reply.paused, nil
}

// Complete finishes the countdown early and waits for the surface to close.
func (h *Handle) Complete() error {
	reply, err := h.rt.send(cmdComplete)
	if err != nil {
		return err
	}
	if !reply.ok {
		return ErrSurfaceClosed
	}
	<-h.rt.done
	return nil
}

// Close dismisses the surface. The latest countdown state is flushed to the
// main view before the runtime exits.
func (h *Handle) Close() {
	h.rt.stop()
}

func (h *Handle) Snapshot() (*model.TimerSnapshot, error) {
	reply, err := h.rt.send(cmdSnapshot)
	if err != nil {
		return nil, err
	}
	return reply.snapshot, nil
}

// Watch follows the surface's frames when its presenter supports it.
func (h *Handle) Watch(buffer int) (<-chan StreamEvent, func(), error) {
	watcher, ok := h.rt.presenter.(Watcher)
	if !ok {
		return nil, nil, fmt.Errorf("surface %s cannot be watched", h.rt.id)
	}
	events, cancel := watcher.Watch(buffer)
	return events, cancel, nil
}
