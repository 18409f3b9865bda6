package model

import "time"

const (
	MinEstimatedMinutes = 1
	MaxEstimatedMinutes = 24 * 60
)

type Task struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	EstimatedTime int            `json:"estimatedTime"`
	Completed     bool           `json:"completed"`
	ActualTime    *int           `json:"actualTime,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
	TimerState    *TimerSnapshot `json:"timerState,omitempty"`
	Position      int            `json:"position"`
}

// TimerSnapshot is the persisted, resumable projection of an open timer session.
// IsRunning means "has an open session" and stays true while paused.
type TimerSnapshot struct {
	IsRunning     bool       `json:"isRunning"`
	RemainingTime int        `json:"remainingTime"`
	IsPaused      bool       `json:"isPaused"`
	StartedAt     time.Time  `json:"startedAt"`
	PausedAt      *time.Time `json:"pausedAt,omitempty"`
}

// TotalSeconds is the full countdown length for the task.
func (t Task) TotalSeconds() int {
	return t.EstimatedTime * 60
}

func (t Task) Clone() Task {
	clone := t
	if t.ActualTime != nil {
		actual := *t.ActualTime
		clone.ActualTime = &actual
	}
	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		clone.CompletedAt = &completedAt
	}
	if t.TimerState != nil {
		snapshot := *t.TimerState
		if t.TimerState.PausedAt != nil {
			pausedAt := *t.TimerState.PausedAt
			snapshot.PausedAt = &pausedAt
		}
		clone.TimerState = &snapshot
	}
	return clone
}
