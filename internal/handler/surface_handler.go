package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "focus/backend/internal/errors"
	"focus/backend/internal/middleware"
	"focus/backend/internal/service"
	"focus/backend/internal/surface"
)

const eventBuffer = 16

// SurfaceController resolves a surface token's subject to its live runtime.
type SurfaceController interface {
	Control(surfaceID string) (*surface.Handle, error)
}

// SurfaceHandler serves the endpoints used from inside an open surface. Every
// route sits behind middleware.SurfaceToken.
type SurfaceHandler struct {
	surfaces SurfaceController
	board    *service.BoardService
}

func NewSurfaceHandler(surfaces SurfaceController, board *service.BoardService) *SurfaceHandler {
	return &SurfaceHandler{surfaces: surfaces, board: board}
}

// Events relays the surface's frames as server-sent events until the surface
// closes or the client goes away.
func (h *SurfaceHandler) Events(c *gin.Context) {
	handle, ok := h.handle(c)
	if !ok {
		return
	}

	events, cancel, err := handle.Watch(eventBuffer)
	if err != nil {
		log.Printf("watch surface %s: %v", handle.SurfaceID(), err)
		writeError(c, apperrors.Internal("surface cannot be watched"))
		return
	}
	defer cancel()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Frame)
			return ev.Name != surface.EventClosed
		}
	})
}

func (h *SurfaceHandler) Pause(c *gin.Context) {
	handle, ok := h.handle(c)
	if !ok {
		return
	}

	paused, err := handle.TogglePause()
	if err != nil {
		writeSurfaceError(c, err)
		return
	}
	snapshot, err := handle.Snapshot()
	if err != nil {
		writeSurfaceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": paused, "timerState": snapshot})
}

// Complete finishes the task from inside the surface; the surface closes and
// the completed task is returned once the board has recorded it.
func (h *SurfaceHandler) Complete(c *gin.Context) {
	handle, ok := h.handle(c)
	if !ok {
		return
	}

	task, apiErr := h.board.CompleteTask(c.Request.Context(), handle.TaskID())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *SurfaceHandler) Close(c *gin.Context) {
	handle, ok := h.handle(c)
	if !ok {
		return
	}

	handle.Close()
	c.Status(http.StatusNoContent)
}

func (h *SurfaceHandler) handle(c *gin.Context) (*surface.Handle, bool) {
	handle, err := h.surfaces.Control(middleware.SurfaceID(c))
	if err != nil {
		writeSurfaceError(c, err)
		return nil, false
	}
	return handle, true
}

func writeSurfaceError(c *gin.Context, err error) {
	if errors.Is(err, surface.ErrSurfaceNotFound) || errors.Is(err, surface.ErrSurfaceClosed) {
		writeError(c, apperrors.NotFound(apperrors.CodeSurfaceNotFound, "surface is no longer open"))
		return
	}
	log.Printf("surface request failed: %v", err)
	writeError(c, apperrors.Internal("surface request failed"))
}
