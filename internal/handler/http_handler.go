package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/presence"
	"github.com/letscodeshivansh/taskchat/internal/service"
)

// HTTPHandler exposes chat history hydration and the presence count to the
// page-rendering layer.
type HTTPHandler struct {
	service service.ChatService
	tracker *presence.Tracker
}

func NewHTTPHandler(svc service.ChatService, tracker *presence.Tracker) *HTTPHandler {
	return &HTTPHandler{service: svc, tracker: tracker}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/tasks/:task_id/messages", h.GetTaskMessages)
		api.GET("/inbox/:identity/messages", h.GetInboxMessages)
		api.GET("/presence", h.GetPresence)
	}

	r.GET("/health", h.HealthCheck)
}

// GetTaskMessages hydrates a task's chat history. Without cursor or limit it
// returns the full history oldest-first; with either it returns one bounded
// page.
func (h *HTTPHandler) GetTaskMessages(c *gin.Context) {
	taskID := c.Param("task_id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, domain.APIResponse{Success: false, Error: "task_id is required"})
		return
	}

	cursor := c.Query("cursor")
	limitStr := c.Query("limit")

	if cursor == "" && limitStr == "" {
		messages, err := h.service.HydrateTask(c.Request.Context(), taskID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, domain.APIResponse{Success: false, Error: "failed to get messages"})
			return
		}
		c.JSON(http.StatusOK, domain.APIResponse{Success: true, Data: messages})
		return
	}

	limit := 0
	if limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, domain.APIResponse{Success: false, Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	page, err := h.service.HydrateTaskPage(c.Request.Context(), taskID, cursor, limit)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.JSON(http.StatusBadRequest, domain.APIResponse{Success: false, Error: "invalid cursor"})
			return
		}
		c.JSON(http.StatusInternalServerError, domain.APIResponse{Success: false, Error: "failed to get messages"})
		return
	}
	c.JSON(http.StatusOK, domain.APIResponse{Success: true, Data: page})
}

func (h *HTTPHandler) GetInboxMessages(c *gin.Context) {
	identity := c.Param("identity")
	if identity == "" {
		c.JSON(http.StatusBadRequest, domain.APIResponse{Success: false, Error: "identity is required"})
		return
	}

	messages, err := h.service.HydrateInbox(c.Request.Context(), identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, domain.APIResponse{Success: false, Error: "failed to get inbox"})
		return
	}
	c.JSON(http.StatusOK, domain.APIResponse{Success: true, Data: messages})
}

func (h *HTTPHandler) GetPresence(c *gin.Context) {
	c.JSON(http.StatusOK, domain.APIResponse{
		Success: true,
		Data:    gin.H{"total": h.tracker.Count()},
	})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
