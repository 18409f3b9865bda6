package service

import (
	"context"
	"strconv"

	apperrors "focus/backend/internal/errors"
	"focus/backend/internal/model"
	"focus/backend/internal/repository"
)

const (
	settingTheme     = "theme"
	settingDailyGoal = "daily_goal_minutes"
)

type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type SettingsService struct {
	store SettingsStore
}

type UpdateSettingsInput struct {
	Theme            *string
	DailyGoalMinutes *int
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) Get(ctx context.Context) (*model.Settings, *apperrors.APIError) {
	settings := model.DefaultSettings()

	theme, err := s.store.Get(ctx, settingTheme)
	if err != nil && err != repository.ErrNotFound {
		return nil, apperrors.Internal("failed to load settings")
	}
	if err == nil && model.IsValidTheme(theme) {
		settings.Theme = theme
	}

	goal, err := s.store.Get(ctx, settingDailyGoal)
	if err != nil && err != repository.ErrNotFound {
		return nil, apperrors.Internal("failed to load settings")
	}
	if err == nil {
		if parsed, parseErr := strconv.Atoi(goal); parseErr == nil && parsed > 0 {
			settings.DailyGoalMinutes = parsed
		}
	}

	return &settings, nil
}

func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput) (*model.Settings, *apperrors.APIError) {
	if input.Theme != nil && !model.IsValidTheme(*input.Theme) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidSettings, "theme must be light or dark")
	}
	if input.DailyGoalMinutes != nil && (*input.DailyGoalMinutes <= 0 || *input.DailyGoalMinutes > model.MaxEstimatedMinutes) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidSettings, "daily goal must be between 1 and 1440 minutes")
	}

	if input.Theme != nil {
		if err := s.store.Set(ctx, settingTheme, *input.Theme); err != nil {
			return nil, apperrors.Internal("failed to save settings")
		}
	}
	if input.DailyGoalMinutes != nil {
		if err := s.store.Set(ctx, settingDailyGoal, strconv.Itoa(*input.DailyGoalMinutes)); err != nil {
			return nil, apperrors.Internal("failed to save settings")
		}
	}

	return s.Get(ctx)
}
