package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focus/backend/internal/service"
)

type FocusHandler struct {
	board *service.BoardService
}

func NewFocusHandler(board *service.BoardService) *FocusHandler {
	return &FocusHandler{board: board}
}

func (h *FocusHandler) Start(c *gin.Context) {
	result, apiErr := h.board.StartFocus(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FocusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.board.FocusStatus())
}

func (h *FocusHandler) Close(c *gin.Context) {
	h.board.CloseFocus()
	c.Status(http.StatusNoContent)
}
