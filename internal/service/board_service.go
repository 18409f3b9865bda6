package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "focus/backend/internal/errors"
	"focus/backend/internal/metrics"
	"focus/backend/internal/model"
	"focus/backend/internal/surface"
	"focus/backend/internal/syncchan"
	"focus/backend/internal/timer"
)

const (
	completionWait = 2 * time.Second
	applyTimeout   = 5 * time.Second
	maxTitleLength = 200
)

type TaskStore interface {
	LoadTasks(ctx context.Context) ([]model.Task, error)
	SaveTasks(ctx context.Context, tasks []model.Task) error
}

// TimerController is the part of the surface controller the board drives.
type TimerController interface {
	OpenTimer(ctx context.Context, task model.Task) (surface.OpenResult, error)
	Cleanup()
	IsActive(taskID string) bool
	ActiveTask() (string, bool)
	ControlTask(taskID string) (*surface.Handle, error)
}

// BoardService is the main view: it owns the task list, the selection and the
// only writes to the task store. Surfaces report back through ApplyStateChange
// and ApplyCompletion.
type BoardService struct {
	store TaskStore
	now   func() time.Time

	mu         sync.Mutex
	ctrl       TimerController
	tasks      []model.Task
	selectedID string
	// sessions maps a task to the surface whose messages are accepted for it.
	// Reset, delete and completion forget the entry, so late messages from
	// earlier surfaces cannot bring back a timer.
	sessions map[string]string
	waiters  map[string][]chan struct{}
}

type Summary struct {
	PendingCount   int       `json:"pendingCount"`
	PendingMinutes int       `json:"pendingMinutes"`
	PendingLabel   string    `json:"pendingLabel"`
	EndsAt         time.Time `json:"endsAt"`
	CompletedCount int       `json:"completedCount"`
	FocusedSeconds int       `json:"focusedSeconds"`
}

type BoardView struct {
	Tasks      []model.Task `json:"tasks"`
	SelectedID string       `json:"selectedId,omitempty"`
	Summary    Summary      `json:"summary"`
}

type FocusView struct {
	SelectedID   string      `json:"selectedId,omitempty"`
	ActiveTaskID string      `json:"activeTaskId,omitempty"`
	Task         *model.Task `json:"task,omitempty"`
}

type FocusResult struct {
	Surface surface.OpenResult `json:"surface"`
	Task    model.Task         `json:"task"`
}

type TaskInput struct {
	Title         string
	EstimatedTime int
}

func NewBoardService(ctx context.Context, store TaskStore) (*BoardService, error) {
	tasks, err := store.LoadTasks(ctx)
	if err != nil {
		return nil, err
	}
	return &BoardService{
		store:     store,
		now:       time.Now,
		tasks:     tasks,
		sessions:  make(map[string]string),
		waiters:   make(map[string][]chan struct{}),
	}, nil
}

// AttachController wires the surface controller. It is separate from the
// constructor because the controller is built with the board's callbacks.
func (s *BoardService) AttachController(ctrl TimerController) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = ctrl
}

func (s *BoardService) ListTasks() BoardView {
	s.mu.Lock()
	defer s.mu.Unlock()

	return BoardView{
		Tasks:      s.cloneLocked(),
		SelectedID: s.selectedID,
		Summary:    s.summaryLocked(),
	}
}

func (s *BoardService) AddTask(ctx context.Context, input TaskInput) (*model.Task, *apperrors.APIError) {
	title, apiErr := validateTaskInput(input)
	if apiErr != nil {
		return nil, apiErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := model.Task{
		ID:            uuid.NewString(),
		Title:         title,
		EstimatedTime: input.EstimatedTime,
		CreatedAt:     s.now().UTC(),
		Position:      len(s.tasks),
	}

	next := append(s.cloneLocked(), task)
	if apiErr := s.commitLocked(ctx, next); apiErr != nil {
		return nil, apiErr
	}
	return &task, nil
}

func (s *BoardService) UpdateTask(ctx context.Context, id string, input TaskInput) (*model.Task, *apperrors.APIError) {
	title, apiErr := validateTaskInput(input)
	if apiErr != nil {
		return nil, apiErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, apperrors.TaskNotFound(id)
	}

	estimateChanged := s.tasks[idx].EstimatedTime != input.EstimatedTime
	if estimateChanged && s.ctrl != nil && s.ctrl.IsActive(id) {
		return nil, apperrors.Conflict(apperrors.CodeTimerActive, "close the timer before changing the estimate", nil)
	}

	next := s.cloneLocked()
	task := &next[idx]
	task.Title = title
	task.EstimatedTime = input.EstimatedTime
	if task.TimerState != nil && task.TimerState.RemainingTime > task.TotalSeconds() {
		task.TimerState.RemainingTime = task.TotalSeconds()
	}

	if apiErr := s.commitLocked(ctx, next); apiErr != nil {
		return nil, apiErr
	}
	updated := next[idx].Clone()
	return &updated, nil
}

func (s *BoardService) DeleteTask(ctx context.Context, id string) *apperrors.APIError {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return apperrors.TaskNotFound(id)
	}

	s.dismissLocked(id)

	next := make([]model.Task, 0, len(s.tasks)-1)
	for i, task := range s.cloneLocked() {
		if i == idx {
			continue
		}
		task.Position = len(next)
		next = append(next, task)
	}

	if apiErr := s.commitLocked(ctx, next); apiErr != nil {
		return apiErr
	}
	if s.selectedID == id {
		s.selectedID = ""
	}
	return nil
}

// ReorderTasks applies a drag-to-reorder. ids must name every task exactly once.
func (s *BoardService) ReorderTasks(ctx context.Context, ids []string) ([]model.Task, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) != len(s.tasks) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidOrder, "order must list every task exactly once")
	}

	current := s.cloneLocked()
	byID := make(map[string]model.Task, len(current))
	for _, task := range current {
		byID[task.ID] = task
	}

	next := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		task, ok := byID[id]
		if !ok {
			return nil, apperrors.BadRequest(apperrors.CodeInvalidOrder, "order must list every task exactly once")
		}
		delete(byID, id)
		task.Position = len(next)
		next = append(next, task)
	}

	if apiErr := s.commitLocked(ctx, next); apiErr != nil {
		return nil, apiErr
	}
	return s.cloneLocked(), nil
}

func (s *BoardService) SelectTask(id string) (*model.Task, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, apperrors.TaskNotFound(id)
	}
	if s.tasks[idx].Completed {
		return nil, apperrors.Conflict(apperrors.CodeTaskCompleted, "task is already completed", nil)
	}

	s.selectedID = id
	task := s.tasks[idx].Clone()
	return &task, nil
}

// StartFocus opens a timer surface for the selected task.
func (s *BoardService) StartFocus(ctx context.Context) (*FocusResult, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selectedID == "" {
		return nil, apperrors.NoTaskSelected()
	}
	return s.openLocked(ctx, s.selectedID)
}

// FocusTask selects a task and opens its timer in one step.
func (s *BoardService) FocusTask(ctx context.Context, id string) (*FocusResult, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, apperrors.TaskNotFound(id)
	}
	if s.tasks[idx].Completed {
		return nil, apperrors.Conflict(apperrors.CodeTaskCompleted, "task is already completed", nil)
	}
	s.selectedID = id
	return s.openLocked(ctx, id)
}

func (s *BoardService) openLocked(ctx context.Context, id string) (*FocusResult, *apperrors.APIError) {
	idx := s.indexLocked(id)
	if idx < 0 {
		s.selectedID = ""
		return nil, apperrors.TaskNotFound(id)
	}
	if s.tasks[idx].Completed {
		return nil, apperrors.Conflict(apperrors.CodeTaskCompleted, "task is already completed", nil)
	}
	if s.ctrl == nil {
		return nil, apperrors.Internal("timer surfaces are not available")
	}

	opened, err := s.ctrl.OpenTimer(ctx, s.tasks[idx].Clone())
	if err != nil {
		if errors.Is(err, surface.ErrSurfaceBlocked) {
			log.Printf("timer surface blocked for task %s: %v", id, err)
			return nil, apperrors.Conflict(apperrors.CodeSurfaceBlocked, surface.BlockedMessage, nil)
		}
		log.Printf("open timer surface for task %s: %v", id, err)
		return nil, apperrors.Internal("failed to open timer")
	}

	if s.tasks[idx].TimerState == nil {
		next := s.cloneLocked()
		next[idx].TimerState = &model.TimerSnapshot{
			IsRunning:     true,
			RemainingTime: next[idx].TotalSeconds(),
			StartedAt:     s.now().UTC(),
		}
		if apiErr := s.commitLocked(ctx, next); apiErr != nil {
			// The session is not registered yet, so its final flush is dropped.
			s.ctrl.Cleanup()
			return nil, apiErr
		}
	}
	s.sessions[id] = opened.SurfaceID

	return &FocusResult{Surface: opened, Task: s.tasks[idx].Clone()}, nil
}

// CompleteTask marks a task done from the list. With a live surface the
// completion goes through the surface so its countdown and the recorded time
// agree; otherwise the elapsed time comes from the last snapshot.
func (s *BoardService) CompleteTask(ctx context.Context, id string) (*model.Task, *apperrors.APIError) {
	s.mu.Lock()

	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, apperrors.TaskNotFound(id)
	}
	if s.tasks[idx].Completed {
		s.mu.Unlock()
		return nil, apperrors.Conflict(apperrors.CodeTaskCompleted, "task is already completed", nil)
	}

	if s.ctrl != nil {
		if handle, err := s.ctrl.ControlTask(id); err == nil {
			done := s.addWaiterLocked(id)
			s.mu.Unlock()
			return s.completeThroughSurface(ctx, handle, id, done)
		}
	}
	defer s.mu.Unlock()

	return s.completeFromSnapshotLocked(ctx, idx)
}

// completeFromSnapshotLocked completes the task at idx using the elapsed time
// of its last snapshot.
func (s *BoardService) completeFromSnapshotLocked(ctx context.Context, idx int) (*model.Task, *apperrors.APIError) {
	task := s.tasks[idx]
	actual := 0
	if task.TimerState != nil {
		actual = task.TotalSeconds() - task.TimerState.RemainingTime
	}

	next := s.cloneLocked()
	markCompleted(&next[idx], actual, s.now().UTC())
	if apiErr := s.commitLocked(ctx, next); apiErr != nil {
		return nil, apiErr
	}
	s.afterCompletionLocked(task.ID, actual, "manual")

	completed := s.tasks[idx].Clone()
	return &completed, nil
}

func (s *BoardService) completeThroughSurface(ctx context.Context, handle *surface.Handle, id string, done chan struct{}) (*model.Task, *apperrors.APIError) {
	if err := handle.Complete(); err != nil {
		s.removeWaiter(id, done)
		if !errors.Is(err, surface.ErrSurfaceClosed) {
			log.Printf("complete task %s through surface: %v", id, err)
			return nil, apperrors.Internal("failed to complete task")
		}
		// The surface closed first; complete from the board's own snapshot.
		s.mu.Lock()
		defer s.mu.Unlock()
		idx := s.indexLocked(id)
		if idx < 0 {
			return nil, apperrors.TaskNotFound(id)
		}
		if s.tasks[idx].Completed {
			task := s.tasks[idx].Clone()
			return &task, nil
		}
		return s.completeFromSnapshotLocked(ctx, idx)
	}

	select {
	case <-done:
	case <-time.After(completionWait):
		s.removeWaiter(id, done)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, apperrors.TaskNotFound(id)
	}
	task := s.tasks[idx].Clone()
	return &task, nil
}

// ResetTask moves a task back to pending, dropping its recorded time and any
// open session.
func (s *BoardService) ResetTask(ctx context.Context, id string) (*model.Task, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, apperrors.TaskNotFound(id)
	}

	s.dismissLocked(id)

	next := s.cloneLocked()
	next[idx].Completed = false
	next[idx].ActualTime = nil
	next[idx].CompletedAt = nil
	next[idx].TimerState = nil

	if apiErr := s.commitLocked(ctx, next); apiErr != nil {
		return nil, apiErr
	}
	task := s.tasks[idx].Clone()
	return &task, nil
}

func (s *BoardService) FocusStatus() FocusView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := FocusView{SelectedID: s.selectedID}
	if s.ctrl != nil {
		if taskID, ok := s.ctrl.ActiveTask(); ok {
			view.ActiveTaskID = taskID
		}
	}
	if idx := s.indexLocked(s.selectedID); idx >= 0 {
		task := s.tasks[idx].Clone()
		view.Task = &task
	}
	return view
}

// CloseFocus closes the open surface. Its final state still reaches the board
// through the sync channel, so the task can be resumed later.
func (s *BoardService) CloseFocus() {
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()

	if ctrl != nil {
		ctrl.Cleanup()
	}
}

// Close releases the surface controller. Called on every shutdown path.
func (s *BoardService) Close() {
	s.CloseFocus()
}

// ApplyStateChange records a surface's countdown state on its task. Messages
// from a surface other than the task's current session are dropped.
func (s *BoardService) ApplyStateChange(surfaceID, taskID string, remainingTime int, isPaused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messageType := string(syncchan.TypeTimerStateChange)
	idx := s.indexLocked(taskID)
	if idx < 0 {
		metrics.RecordSyncReceived(messageType, "unknown_task")
		return
	}
	if s.tasks[idx].Completed {
		metrics.RecordSyncReceived(messageType, "stale")
		return
	}
	if !s.acceptsLocked(taskID, surfaceID) {
		metrics.RecordSyncReceived(messageType, "stale")
		return
	}

	now := s.now().UTC()
	task := &s.tasks[idx]
	previous := task.TimerState
	snapshot := &model.TimerSnapshot{
		IsRunning:     true,
		RemainingTime: clampRemaining(remainingTime, task.TotalSeconds()),
		IsPaused:      isPaused,
		StartedAt:     now,
	}
	if previous != nil {
		if !previous.StartedAt.IsZero() {
			snapshot.StartedAt = previous.StartedAt
		}
		if isPaused && previous.IsPaused && previous.PausedAt != nil {
			pausedAt := *previous.PausedAt
			snapshot.PausedAt = &pausedAt
		}
	}
	if isPaused && snapshot.PausedAt == nil {
		snapshot.PausedAt = &now
	}
	task.TimerState = snapshot

	s.persistLocked()
	metrics.RecordSyncReceived(messageType, "applied")
}

// ApplyCompletion records a completion reported by a surface. Completions for
// unknown or already completed tasks, or from a stale session, are ignored.
func (s *BoardService) ApplyCompletion(surfaceID, taskID string, actualTime int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messageType := string(syncchan.TypeTaskComplete)
	idx := s.indexLocked(taskID)
	if idx < 0 {
		metrics.RecordSyncReceived(messageType, "unknown_task")
		return
	}
	if s.tasks[idx].Completed || !s.acceptsLocked(taskID, surfaceID) {
		metrics.RecordSyncReceived(messageType, "stale")
		return
	}

	total := s.tasks[idx].TotalSeconds()
	actualTime = clampRemaining(actualTime, total)
	trigger := "manual"
	if actualTime == total {
		trigger = "expired"
	}

	markCompleted(&s.tasks[idx], actualTime, s.now().UTC())
	s.persistLocked()
	s.afterCompletionLocked(taskID, actualTime, trigger)
	metrics.RecordSyncReceived(messageType, "applied")
}

func (s *BoardService) afterCompletionLocked(taskID string, actualTime int, trigger string) {
	s.selectedID = ""
	delete(s.sessions, taskID)
	for _, ch := range s.waiters[taskID] {
		close(ch)
	}
	delete(s.waiters, taskID)

	metrics.RecordTaskCompleted(trigger, time.Duration(actualTime)*time.Second)
	log.Printf("task %s completed (%s, %s)", taskID, trigger, timer.FormatClock(actualTime))
}

// dismissLocked forgets the task's session and tears down its surface if one
// is still open.
func (s *BoardService) dismissLocked(id string) {
	delete(s.sessions, id)
	if s.ctrl != nil && s.ctrl.IsActive(id) {
		s.ctrl.Cleanup()
	}
}

// acceptsLocked reports whether a message from surfaceID may update taskID.
// Senders without a session id are accepted while the task has a session.
func (s *BoardService) acceptsLocked(taskID, surfaceID string) bool {
	current, ok := s.sessions[taskID]
	if !ok {
		return false
	}
	return surfaceID == "" || surfaceID == current
}

func (s *BoardService) addWaiterLocked(id string) chan struct{} {
	ch := make(chan struct{})
	s.waiters[id] = append(s.waiters[id], ch)
	return ch
}

func (s *BoardService) removeWaiter(id string, target chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiters := s.waiters[id]
	for i, ch := range waiters {
		if ch == target {
			s.waiters[id] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(s.waiters[id]) == 0 {
		delete(s.waiters, id)
	}
}

// commitLocked persists next and makes it current only when the write
// succeeded.
func (s *BoardService) commitLocked(ctx context.Context, next []model.Task) *apperrors.APIError {
	if err := s.store.SaveTasks(ctx, next); err != nil {
		log.Printf("save tasks: %v", err)
		return apperrors.Internal("failed to save tasks")
	}
	s.tasks = next
	return nil
}

// persistLocked saves state that already happened on a surface. The in-memory
// list stays authoritative when the write fails.
func (s *BoardService) persistLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()
	if err := s.store.SaveTasks(ctx, s.cloneLocked()); err != nil {
		log.Printf("save tasks after sync message: %v", err)
	}
}

func (s *BoardService) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *BoardService) cloneLocked() []model.Task {
	tasks := make([]model.Task, len(s.tasks))
	for i, task := range s.tasks {
		tasks[i] = task.Clone()
	}
	return tasks
}

func (s *BoardService) summaryLocked() Summary {
	summary := Summary{}
	for _, task := range s.tasks {
		if task.Completed {
			summary.CompletedCount++
			if task.ActualTime != nil {
				summary.FocusedSeconds += *task.ActualTime
			}
			continue
		}
		summary.PendingCount++
		summary.PendingMinutes += task.EstimatedTime
	}
	summary.PendingLabel = timer.FormatDuration(summary.PendingMinutes)
	summary.EndsAt = s.now().Add(time.Duration(summary.PendingMinutes) * time.Minute).UTC()
	return summary
}

func markCompleted(task *model.Task, actualTime int, now time.Time) {
	actual := actualTime
	if actual < 0 {
		actual = 0
	}
	task.Completed = true
	task.ActualTime = &actual
	task.CompletedAt = &now
	task.TimerState = nil
}

func validateTaskInput(input TaskInput) (string, *apperrors.APIError) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return "", apperrors.BadRequest(apperrors.CodeInvalidTitle, "title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return "", apperrors.BadRequest(apperrors.CodeInvalidTitle, "title is too long")
	}
	if input.EstimatedTime < model.MinEstimatedMinutes || input.EstimatedTime > model.MaxEstimatedMinutes {
		return "", apperrors.BadRequest(apperrors.CodeInvalidEstimate, "estimated time must be between 1 and 1440 minutes")
	}
	return title, nil
}

func clampRemaining(remaining, total int) int {
	if remaining < 0 {
		return 0
	}
	if remaining > total {
		return total
	}
	return remaining
}
