// Package surface opens and manages the detached presentation of a focus
// timer. Every surface runs its own mirrored countdown in an isolated
// goroutine and reports back to the main view only through the sync channel.
package surface

import (
	"context"
	"errors"
)

type Mode string

const (
	ModeFloating Mode = "floating"
	ModeWindow   Mode = "window"
)

var (
	// ErrSurfaceUnavailable means the floating capability is missing or its
	// acquisition was rejected. The controller recovers by falling back.
	ErrSurfaceUnavailable = errors.New("floating surface unavailable")
	// ErrSurfaceBlocked means the host refused the plain window as well.
	ErrSurfaceBlocked  = errors.New("surface blocked by host")
	ErrSurfaceNotFound = errors.New("surface not found")
	ErrSurfaceClosed   = errors.New("surface closed")
)

// BlockedMessage is shown to the user when no surface could be opened.
const BlockedMessage = "Popup was blocked. Please allow popups for this site."

type Spec struct {
	SurfaceID string
	TaskID    string
	Title     string
	Mode      Mode
}

// Frame is one rendered state of a surface countdown.
type Frame struct {
	SurfaceID     string  `json:"surfaceId"`
	TaskID        string  `json:"taskId"`
	Title         string  `json:"title"`
	Mode          Mode    `json:"mode"`
	RemainingTime int     `json:"remainingTime"`
	Display       string  `json:"display"`
	Progress      float64 `json:"progress"`
	LowTime       bool    `json:"lowTime"`
	Paused        bool    `json:"paused"`
	Status        string  `json:"status"`
	Completed     bool    `json:"completed"`
}

// Presenter displays a surface. Close must be idempotent; Closed is closed
// once the presenter is gone, whether the user dismissed it or Close was
// called.
type Presenter interface {
	Render(frame Frame)
	Focus()
	Close()
	Closed() <-chan struct{}
}

// Host acquires presenters of one mode.
type Host interface {
	Mode() Mode
	Acquire(ctx context.Context, spec Spec) (Presenter, error)
}
