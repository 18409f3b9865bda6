package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"focus/backend/internal/service"
)

type SettingsHandler struct {
	settings *service.SettingsService
	history  *service.HistoryService
}

type updateSettingsRequest struct {
	Theme            *string `json:"theme"`
	DailyGoalMinutes *int    `json:"dailyGoalMinutes"`
}

func NewSettingsHandler(settings *service.SettingsService, history *service.HistoryService) *SettingsHandler {
	return &SettingsHandler{settings: settings, history: history}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	settings, apiErr := h.settings.Get(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	settings, apiErr := h.settings.Update(c.Request.Context(), service.UpdateSettingsInput{
		Theme:            req.Theme,
		DailyGoalMinutes: req.DailyGoalMinutes,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *SettingsHandler) Heatmap(c *gin.Context) {
	c.JSON(http.StatusOK, h.history.Heatmap(time.Now()))
}
