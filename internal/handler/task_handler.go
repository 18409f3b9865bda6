package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focus/backend/internal/service"
)

type TaskHandler struct {
	board *service.BoardService
}

type taskRequest struct {
	Title         string `json:"title"`
	EstimatedTime int    `json:"estimatedTime"`
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func NewTaskHandler(board *service.BoardService) *TaskHandler {
	return &TaskHandler{board: board}
}

func (h *TaskHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.board.ListTasks())
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	task, apiErr := h.board.AddTask(c.Request.Context(), service.TaskInput{
		Title:         req.Title,
		EstimatedTime: req.EstimatedTime,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	task, apiErr := h.board.UpdateTask(c.Request.Context(), c.Param("id"), service.TaskInput{
		Title:         req.Title,
		EstimatedTime: req.EstimatedTime,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	if apiErr := h.board.DeleteTask(c.Request.Context(), c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) Reorder(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	tasks, apiErr := h.board.ReorderTasks(c.Request.Context(), req.IDs)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Select(c *gin.Context) {
	task, apiErr := h.board.SelectTask(c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *TaskHandler) Complete(c *gin.Context) {
	task, apiErr := h.board.CompleteTask(c.Request.Context(), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *TaskHandler) Reset(c *gin.Context) {
	task, apiErr := h.board.ResetTask(c.Request.Context(), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}
