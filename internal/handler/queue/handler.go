package queue

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/handler"
	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/service"
	"github.com/jwalitptl/opd-queue/pkg/auth"
)

type Service interface {
	CallNext(ctx context.Context, doctorID uuid.UUID) (*model.CallNextResult, error)
	Pause(ctx context.Context, doctorID uuid.UUID, reason string) error
	Resume(ctx context.Context, doctorID uuid.UUID) error
	Status(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.QueueStatus, error)
}

type Handler struct {
	service  Service
	access   handler.Access
	calendar service.Calendar
}

func NewHandler(svc Service, access handler.Access, calendar service.Calendar) *Handler {
	return &Handler{service: svc, access: access, calendar: calendar}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, guard handler.Guard) {
	q := r.Group("/queue")
	{
		q.GET("/status", h.Status)
		q.POST("/call-next", guard.RequireRole(auth.RoleDoctor), h.CallNext)
		q.POST("/pause", guard.RequireRole(auth.RoleDoctor), h.Pause)
		q.POST("/resume", guard.RequireRole(auth.RoleDoctor), h.Resume)
	}
}

func (h *Handler) CallNext(c *gin.Context) {
	var req model.CallNextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	if !handler.Authorized(c, h.access.Doctor(c.Request.Context(), handler.CallerOf(c), req.DoctorID)) {
		return
	}
	result, err := h.service.CallNext(c.Request.Context(), req.DoctorID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, result)
}

func (h *Handler) Pause(c *gin.Context) {
	var req model.PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	if !handler.Authorized(c, h.access.Doctor(c.Request.Context(), handler.CallerOf(c), req.DoctorID)) {
		return
	}
	if err := h.service.Pause(c.Request.Context(), req.DoctorID, req.Reason); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, gin.H{"doctor_id": req.DoctorID, "is_paused": true})
}

func (h *Handler) Resume(c *gin.Context) {
	var req model.ResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	if !handler.Authorized(c, h.access.Doctor(c.Request.Context(), handler.CallerOf(c), req.DoctorID)) {
		return
	}
	if err := h.service.Resume(c.Request.Context(), req.DoctorID); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, gin.H{"doctor_id": req.DoctorID, "is_paused": false})
}

// Status defaults to today's queue when no date is given.
func (h *Handler) Status(c *gin.Context) {
	doctorID, ok := handler.QueryUUID(c, "doctor_id")
	if !ok {
		return
	}
	date, ok := handler.QueryDate(c, "date", h.calendar.Today())
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), doctorID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, status)
}
