package notification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/handler"
	"github.com/jwalitptl/opd-queue/internal/model"
)

type Service interface {
	Feed(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, patientID uuid.UUID) (int64, error)
}

type Handler struct {
	service Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{service: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/notifications", h.Feed)
	r.POST("/patients/:id/notifications/read", h.MarkAllRead)
	r.POST("/notifications/:id/read", h.MarkRead)
}

// Feed generates any due reminders before listing, so it is a GET with a
// side effect.
func (h *Handler) Feed(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	feed, err := h.service.Feed(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, feed)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, gin.H{"id": id, "is_read": true})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	n, err := h.service.MarkAllRead(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, gin.H{"marked": n})
}
