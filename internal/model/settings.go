package model

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

const DefaultDailyGoalMinutes = 120

type Settings struct {
	Theme            string `json:"theme"`
	DailyGoalMinutes int    `json:"dailyGoalMinutes"`
}

func DefaultSettings() Settings {
	return Settings{
		Theme:            ThemeLight,
		DailyGoalMinutes: DefaultDailyGoalMinutes,
	}
}

func IsValidTheme(theme string) bool {
	return theme == ThemeLight || theme == ThemeDark
}
