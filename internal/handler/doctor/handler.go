package doctor

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/handler"
	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/service"
	"github.com/jwalitptl/opd-queue/pkg/auth"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

type Service interface {
	Departments(ctx context.Context) ([]*model.Department, error)
	List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, start, end model.Clock) (*model.Doctor, error)
	AddLeave(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.DoctorLeave, error)
	Leaves(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorLeave, error)
	RemoveLeave(ctx context.Context, doctorID uuid.UUID, date model.Date) error
}

// DailyLister lists one doctor's appointments for a day.
type DailyLister interface {
	DailyList(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]*model.AppointmentDetail, error)
}

type Handler struct {
	service  Service
	daily    DailyLister
	access   handler.Access
	calendar service.Calendar
}

func NewHandler(svc Service, daily DailyLister, access handler.Access, calendar service.Calendar) *Handler {
	return &Handler{service: svc, daily: daily, access: access, calendar: calendar}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, guard handler.Guard) {
	r.GET("/departments", h.ListDepartments)

	doctors := r.Group("/doctors")
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id", h.GetDoctor)
		doctors.PUT("/:id/schedule", guard.RequireRole(auth.RoleDoctor), h.UpdateSchedule)
		doctors.GET("/:id/leaves", h.ListLeaves)
		doctors.POST("/:id/leaves", guard.RequireRole(auth.RoleDoctor), h.AddLeave)
		doctors.DELETE("/:id/leaves/:date", guard.RequireRole(auth.RoleDoctor), h.RemoveLeave)
		doctors.GET("/:id/appointments", guard.RequireRole(auth.RoleDoctor), h.DailyAppointments)
	}
}

func (h *Handler) ListDepartments(c *gin.Context) {
	departments, err := h.service.Departments(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, departments)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	filters := &model.DoctorFilters{}
	if c.Query("department_id") != "" {
		id, ok := handler.QueryUUID(c, "department_id")
		if !ok {
			return
		}
		filters.DepartmentID = &id
	}

	doctors, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, doctors)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	doctor, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, doctor)
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !handler.Authorized(c, h.access.Doctor(c.Request.Context(), handler.CallerOf(c), id)) {
		return
	}
	var req model.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	start, err := model.ParseClock(req.StartTime)
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	end, err := model.ParseClock(req.EndTime)
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	doctor, err := h.service.UpdateSchedule(c.Request.Context(), id, start, end)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, doctor)
}

func (h *Handler) ListLeaves(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	leaves, err := h.service.Leaves(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, leaves)
}

func (h *Handler) AddLeave(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !handler.Authorized(c, h.access.Doctor(c.Request.Context(), handler.CallerOf(c), id)) {
		return
	}
	var req model.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	leave, err := h.service.AddLeave(c.Request.Context(), id, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusCreated, leave)
}

func (h *Handler) RemoveLeave(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !handler.Authorized(c, h.access.Doctor(c.Request.Context(), handler.CallerOf(c), id)) {
		return
	}
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.service.RemoveLeave(c.Request.Context(), id, date); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DailyAppointments is the doctor's worklist, today unless ?date is given.
func (h *Handler) DailyAppointments(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !handler.Authorized(c, h.access.Doctor(c.Request.Context(), handler.CallerOf(c), id)) {
		return
	}
	date, ok := handler.QueryDate(c, "date", h.calendar.Today())
	if !ok {
		return
	}
	list, err := h.daily.DailyList(c.Request.Context(), id, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, list)
}
