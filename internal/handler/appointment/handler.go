package appointment

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/handler"
	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/service/availability"
	"github.com/jwalitptl/opd-queue/internal/service/booking"
	"github.com/jwalitptl/opd-queue/internal/service/queue"
	"github.com/jwalitptl/opd-queue/pkg/auth"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

type Booker interface {
	Book(ctx context.Context, req booking.BookRequest) (*model.Appointment, error)
}

type Availability interface {
	Available(ctx context.Context, req availability.Request) (*model.AvailabilityResult, error)
}

type Lifecycle interface {
	Accept(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) error
	Reschedule(ctx context.Context, req queue.RescheduleRequest) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	booker       Booker
	availability Availability
	lifecycle    Lifecycle
	access       handler.Access
}

func NewHandler(booker Booker, availability Availability, lifecycle Lifecycle, access handler.Access) *Handler {
	return &Handler{booker: booker, availability: availability, lifecycle: lifecycle, access: access}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, guard handler.Guard) {
	r.GET("/availability", h.CheckAvailability)

	appointments := r.Group("/appointments")
	{
		appointments.POST("", guard.RequireRole(auth.RolePatient), h.Book)
		appointments.POST("/:id/accept", guard.RequireRole(auth.RoleDoctor), h.Accept)
		appointments.POST("/:id/complete", guard.RequireRole(auth.RoleDoctor), h.Complete)
		appointments.POST("/:id/reschedule", guard.RequireRole(auth.RoleDoctor), h.Reschedule)
		appointments.POST("/:id/cancel", guard.RequireRole(auth.RolePatient), h.Cancel)
	}
}

func (h *Handler) Book(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	if !handler.Authorized(c, h.access.Patient(c.Request.Context(), handler.CallerOf(c), req.PatientID)) {
		return
	}

	date, err := model.ParseDate(req.Date)
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	at, err := model.ParseClock(req.Time)
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	appt, err := h.booker.Book(c.Request.Context(), booking.BookRequest{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      date,
		Time:      at,
		Emergency: req.IsEmergency,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	handler.Respond(c, http.StatusCreated, model.BookingResult{
		Token:         appt.TokenNumber,
		AppointmentID: appt.ID,
	})
}

// CheckAvailability answers whether a slot could be booked right now. The
// time is optional; without it only leave is checked.
func (h *Handler) CheckAvailability(c *gin.Context) {
	doctorID, ok := handler.QueryUUID(c, "doctor_id")
	if !ok {
		return
	}
	rawDate := c.Query("date")
	if rawDate == "" {
		handler.RespondError(c, apperrors.BadRequest("date is required", nil))
		return
	}
	date, ok := handler.QueryDate(c, "date", model.Date{})
	if !ok {
		return
	}

	req := availability.Request{DoctorID: doctorID, Date: date}
	if raw := c.Query("time"); raw != "" {
		at, err := model.ParseClock(raw)
		if err != nil {
			handler.RespondError(c, apperrors.BadRequest(err.Error(), err))
			return
		}
		req.Time = &at
	}
	if raw := c.Query("is_emergency"); raw != "" {
		emergency, err := strconv.ParseBool(raw)
		if err != nil {
			handler.RespondError(c, apperrors.BadRequest("is_emergency must be true or false", err))
			return
		}
		req.Emergency = emergency
	}

	result, err := h.availability.Available(c.Request.Context(), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, result)
}

func (h *Handler) Accept(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !handler.Authorized(c, h.access.AppointmentDoctor(c.Request.Context(), handler.CallerOf(c), id)) {
		return
	}
	appt, err := h.lifecycle.Accept(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, appt)
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !handler.Authorized(c, h.access.AppointmentDoctor(c.Request.Context(), handler.CallerOf(c), id)) {
		return
	}
	if err := h.lifecycle.Complete(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, gin.H{"id": id, "status": model.AppointmentStatusCompleted})
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !handler.Authorized(c, h.access.AppointmentDoctor(c.Request.Context(), handler.CallerOf(c), id)) {
		return
	}
	var req model.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	date, err := model.ParseDate(req.NewDate)
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	at, err := model.ParseClock(req.NewTime)
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	appt, err := h.lifecycle.Reschedule(c.Request.Context(), queue.RescheduleRequest{
		AppointmentID: id,
		Date:          date,
		Time:          at,
		Note:          req.Note,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, appt)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !handler.Authorized(c, h.access.AppointmentPatient(c.Request.Context(), handler.CallerOf(c), id)) {
		return
	}
	if err := h.lifecycle.Cancel(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, gin.H{"id": id, "status": model.AppointmentStatusCancelled})
}
