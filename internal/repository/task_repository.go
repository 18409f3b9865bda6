package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"focus/backend/internal/model"
)

// TaskRepository is the task store. The list is always read and written as a
// whole; SaveTasks replaces every row in a single transaction.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) LoadTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, title, estimated_time, completed, actual_time,
		        created_at, completed_at, timer_state, position
		 FROM tasks
		 ORDER BY position ASC, created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepository) SaveTasks(ctx context.Context, tasks []model.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear tasks: %w", err)
	}

	for i := range tasks {
		if err := insertTaskTx(ctx, tx, &tasks[i], i); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tasks: %w", err)
	}
	return nil
}

func insertTaskTx(ctx context.Context, tx *sql.Tx, task *model.Task, position int) error {
	var actualTime interface{}
	if task.ActualTime != nil {
		actualTime = *task.ActualTime
	}

	var timerState interface{}
	if task.TimerState != nil {
		encoded, err := json.Marshal(task.TimerState)
		if err != nil {
			return fmt.Errorf("encode timer state for %s: %w", task.ID, err)
		}
		timerState = string(encoded)
	}

	completed := 0
	if task.Completed {
		completed = 1
	}

	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO tasks (
			id, title, estimated_time, completed, actual_time,
			created_at, completed_at, timer_state, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Title,
		task.EstimatedTime,
		completed,
		actualTime,
		formatTime(task.CreatedAt),
		nullableTime(task.CompletedAt),
		timerState,
		position,
	)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(s scanner) (*model.Task, error) {
	task := model.Task{}
	var completed int
	var actualTime sql.NullInt64
	var createdAt string
	var completedAt sql.NullString
	var timerState sql.NullString
	err := s.Scan(
		&task.ID,
		&task.Title,
		&task.EstimatedTime,
		&completed,
		&actualTime,
		&createdAt,
		&completedAt,
		&timerState,
		&task.Position,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Completed = completed != 0
	if actualTime.Valid {
		value := int(actualTime.Int64)
		task.ActualTime = &value
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse task created_at: %w", err)
	}
	task.CreatedAt = parsedCreatedAt

	task.CompletedAt, err = parseNullTime(completedAt)
	if err != nil {
		return nil, fmt.Errorf("parse task completed_at: %w", err)
	}

	if timerState.Valid && timerState.String != "" {
		var snapshot model.TimerSnapshot
		if err := json.Unmarshal([]byte(timerState.String), &snapshot); err != nil {
			return nil, fmt.Errorf("decode timer state for %s: %w", task.ID, err)
		}
		task.TimerState = &snapshot
	}

	return &task, nil
}
