// Package timer implements the countdown state machine behind a focus session.
//
// A Session is not safe for concurrent use; each execution context (the main
// view or a surface runtime) owns its own instance and drives it sequentially.
package timer

import (
	"errors"
	"time"

	"focus/backend/internal/model"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

const lowTimeFraction = 0.2

var ErrInvalidEstimate = errors.New("estimated time must be positive")

type Session struct {
	taskID     string
	total      int
	remaining  int
	status     Status
	startedAt  time.Time
	pausedAt   *time.Time
	actualTime int
}

// TickResult reports what a single tick did to the session.
type TickResult struct {
	Advanced  bool
	Completed bool
}

// NewSession opens a session for a task. A non-nil snapshot is resumed as-is
// (remaining time and pause state); otherwise the countdown starts from the
// full estimate.
func NewSession(taskID string, estimatedMinutes int, snapshot *model.TimerSnapshot, now time.Time) (*Session, error) {
	if estimatedMinutes <= 0 {
		return nil, ErrInvalidEstimate
	}

	total := estimatedMinutes * 60
	session := &Session{
		taskID:    taskID,
		total:     total,
		remaining: total,
		status:    StatusRunning,
		startedAt: now,
	}

	if snapshot != nil {
		session.remaining = clamp(snapshot.RemainingTime, 0, total)
		if !snapshot.StartedAt.IsZero() {
			session.startedAt = snapshot.StartedAt
		}
		if snapshot.IsPaused {
			session.status = StatusPaused
			pausedAt := now
			if snapshot.PausedAt != nil {
				pausedAt = *snapshot.PausedAt
			}
			session.pausedAt = &pausedAt
		}
	}

	return session, nil
}

// Tick advances a running session by one second. A running session that is
// already at zero completes on its first tick.
func (s *Session) Tick() TickResult {
	if s.status != StatusRunning {
		return TickResult{}
	}

	result := TickResult{}
	if s.remaining > 0 {
		s.remaining--
		result.Advanced = true
	}
	if s.remaining == 0 {
		s.status = StatusCompleted
		s.actualTime = s.total
		s.pausedAt = nil
		result.Completed = true
	}
	return result
}

// TogglePause flips between running and paused. ok is false when the session
// is idle or completed.
func (s *Session) TogglePause(now time.Time) (paused bool, ok bool) {
	switch s.status {
	case StatusRunning:
		s.status = StatusPaused
		pausedAt := now
		s.pausedAt = &pausedAt
		return true, true
	case StatusPaused:
		s.status = StatusRunning
		return false, true
	default:
		return false, false
	}
}

// Complete ends the session early and records the time spent so far.
func (s *Session) Complete() (int, bool) {
	if s.status != StatusRunning && s.status != StatusPaused {
		return 0, false
	}
	s.actualTime = s.total - s.remaining
	s.status = StatusCompleted
	s.pausedAt = nil
	return s.actualTime, true
}

// Reset drops the session back to idle with a full countdown.
func (s *Session) Reset() {
	s.status = StatusIdle
	s.remaining = s.total
	s.pausedAt = nil
	s.actualTime = 0
}

// Snapshot returns the durable projection, or nil when no session is open.
func (s *Session) Snapshot() *model.TimerSnapshot {
	if s.status != StatusRunning && s.status != StatusPaused {
		return nil
	}
	snapshot := &model.TimerSnapshot{
		IsRunning:     true,
		RemainingTime: s.remaining,
		IsPaused:      s.status == StatusPaused,
		StartedAt:     s.startedAt,
	}
	if s.pausedAt != nil {
		pausedAt := *s.pausedAt
		snapshot.PausedAt = &pausedAt
	}
	return snapshot
}

func (s *Session) TaskID() string { return s.taskID }
func (s *Session) Total() int { return s.total }
func (s *Session) Remaining() int { return s.remaining }
func (s *Session) Status() Status { return s.status }
func (s *Session) Paused() bool { return s.status == StatusPaused }
func (s *Session) StartedAt() time.Time { return s.startedAt }

// ActualTime is only meaningful once the session has completed.
func (s *Session) ActualTime() (int, bool) {
	if s.status != StatusCompleted {
		return 0, false
	}
	return s.actualTime, true
}

func (s *Session) Progress() float64 {
	if s.total <= 0 {
		return 1
	}
	return float64(s.total-s.remaining) / float64(s.total)
}

func (s *Session) LowTime() bool {
	return float64(s.remaining) <= float64(s.total)*lowTimeFraction
}

func clamp(value, lower, upper int) int {
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}
