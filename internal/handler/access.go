package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/pkg/auth"
)

// Access checks that the caller is linked to the doctor or patient a write
// route acts on.
type Access interface {
	Doctor(ctx context.Context, caller auth.Caller, doctorID uuid.UUID) error
	Patient(ctx context.Context, caller auth.Caller, patientID uuid.UUID) error
	AppointmentDoctor(ctx context.Context, caller auth.Caller, appointmentID uuid.UUID) error
	AppointmentPatient(ctx context.Context, caller auth.Caller, appointmentID uuid.UUID) error
}

// CallerOf reads the user set by the auth middleware.
func CallerOf(c *gin.Context) auth.Caller {
	caller := auth.Caller{Role: c.GetString(auth.ContextRole)}
	if v, ok := c.Get(auth.ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			caller.UserID = id
		}
	}
	return caller
}

// Authorized answers the request with the check's error and reports false
// when the check fails.
func Authorized(c *gin.Context, err error) bool {
	if err != nil {
		RespondError(c, err)
		return false
	}
	return true
}
