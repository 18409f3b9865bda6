package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focus/backend/internal/db"
	"focus/backend/internal/model"
)

var taskColumns = []string{
	"id", "title", "estimated_time", "completed", "actual_time",
	"created_at", "completed_at", "timer_state", "position",
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *TaskRepository) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	return database, mock, NewTaskRepository(database)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "focus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database, db.MigrationSource("")))
	return database
}

func TestLoadTasks(t *testing.T) {
	database, mock, repo := setupMockDB(t)
	defer func() { _ = database.Close() }()

	ctx := context.Background()

	t.Run("decodes rows", func(t *testing.T) {
		rows := sqlmock.NewRows(taskColumns).
			AddRow("t1", "Write report", 25, 0, nil,
				"2026-03-01T09:00:00Z", nil,
				`{"isRunning":true,"remainingTime":600,"isPaused":true,"startedAt":"2026-03-01T09:05:00Z"}`, 0).
			AddRow("t2", "Review PR", 10, 1, 540,
				"2026-03-01T08:00:00Z", "2026-03-01T08:30:00Z", nil, 1)

		mock.ExpectQuery(`(?s)SELECT .*FROM tasks.*ORDER BY position`).WillReturnRows(rows)

		tasks, err := repo.LoadTasks(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 2)

		assert.Equal(t, "t1", tasks[0].ID)
		assert.False(t, tasks[0].Completed)
		require.NotNil(t, tasks[0].TimerState)
		assert.Equal(t, 600, tasks[0].TimerState.RemainingTime)
		assert.True(t, tasks[0].TimerState.IsPaused)

		assert.True(t, tasks[1].Completed)
		require.NotNil(t, tasks[1].ActualTime)
		assert.Equal(t, 540, *tasks[1].ActualTime)
		require.NotNil(t, tasks[1].CompletedAt)
		assert.Nil(t, tasks[1].TimerState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid timer state", func(t *testing.T) {
		rows := sqlmock.NewRows(taskColumns).
			AddRow("t1", "Broken", 25, 0, nil, "2026-03-01T09:00:00Z", nil, `{not json`, 0)
		mock.ExpectQuery(`(?s)SELECT .*FROM tasks`).WillReturnRows(rows)

		_, err := repo.LoadTasks(ctx)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		mock.ExpectQuery(`(?s)SELECT .*FROM tasks`).WillReturnError(errors.New("disk I/O error"))

		_, err := repo.LoadTasks(ctx)
		assert.ErrorContains(t, err, "load tasks")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSaveTasks(t *testing.T) {
	database, mock, repo := setupMockDB(t)
	defer func() { _ = database.Close() }()

	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "t1", Title: "Write report", EstimatedTime: 25, CreatedAt: created},
		{ID: "t2", Title: "Review PR", EstimatedTime: 10, CreatedAt: created},
	}

	t.Run("replaces all rows in one transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM tasks").WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec("INSERT INTO tasks").
			WithArgs("t1", "Write report", 25, 0, nil, "2026-03-01T09:00:00Z", nil, nil, 0).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO tasks").
			WithArgs("t2", "Review PR", 10, 0, nil, "2026-03-01T09:00:00Z", nil, nil, 1).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.SaveTasks(ctx, tasks))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on insert failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM tasks").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("INSERT INTO tasks").WillReturnError(errors.New("constraint failed"))
		mock.ExpectRollback()

		err := repo.SaveTasks(ctx, tasks)
		assert.ErrorContains(t, err, "insert task t1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskRepositorySQLiteRoundTrip(t *testing.T) {
	repo := NewTaskRepository(openTestDB(t))
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	completedAt := created.Add(30 * time.Minute)
	actual := 1200
	pausedAt := created.Add(10 * time.Minute)

	tasks := []model.Task{
		{
			ID: "b", Title: "Second", EstimatedTime: 30, CreatedAt: created,
			TimerState: &model.TimerSnapshot{
				IsRunning: true, RemainingTime: 900, IsPaused: true,
				StartedAt: created, PausedAt: &pausedAt,
			},
		},
		{
			ID: "a", Title: "First", EstimatedTime: 20, CreatedAt: created,
			Completed: true, ActualTime: &actual, CompletedAt: &completedAt,
		},
	}
	require.NoError(t, repo.SaveTasks(ctx, tasks))

	loaded, err := repo.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "b", loaded[0].ID)
	assert.Equal(t, 0, loaded[0].Position)
	require.NotNil(t, loaded[0].TimerState)
	assert.Equal(t, 900, loaded[0].TimerState.RemainingTime)
	require.NotNil(t, loaded[0].TimerState.PausedAt)
	assert.True(t, pausedAt.Equal(*loaded[0].TimerState.PausedAt))

	assert.Equal(t, "a", loaded[1].ID)
	assert.Equal(t, 1, loaded[1].Position)
	assert.Equal(t, 1200, *loaded[1].ActualTime)
	assert.True(t, completedAt.Equal(*loaded[1].CompletedAt))

	require.NoError(t, repo.SaveTasks(ctx, loaded[:1]))
	loaded, err = repo.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestSettingsRepository(t *testing.T) {
	repo := NewSettingsRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, "theme")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Set(ctx, "theme", "dark"))
	require.NoError(t, repo.Set(ctx, "theme", "light"))

	value, err := repo.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", value)
}
