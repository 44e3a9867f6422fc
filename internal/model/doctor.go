package model

import (
	"github.com/google/uuid"
)

var (
	DefaultScheduleStart = NewClock(9, 0)
	DefaultScheduleEnd   = NewClock(17, 0)
)

type Doctor struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	DepartmentID   *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	FullName       string     `db:"full_name" json:"full_name"`
	Specialization string     `db:"specialization" json:"specialization,omitempty"`
	Phone          string     `db:"phone" json:"phone,omitempty"`
	ScheduleStart  Clock      `db:"schedule_start" json:"schedule_start"`
	ScheduleEnd    Clock      `db:"schedule_end" json:"schedule_end"`
	IsPaused       bool       `db:"is_paused" json:"is_paused"`
	PauseReason    *string    `db:"pause_reason" json:"pause_reason,omitempty"`
}

// Covers reports whether t falls inside the doctor's schedule window,
// bounds included.
func (d *Doctor) Covers(t Clock) bool {
	return t >= d.ScheduleStart && t <= d.ScheduleEnd
}

type DoctorFilters struct {
	DepartmentID *uuid.UUID
}

type UpdateScheduleRequest struct {
	StartTime string `json:"start_time" binding:"required,clock"`
	EndTime   string `json:"end_time" binding:"required,clock"`
}

type Department struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
}

// DoctorLeave marks a doctor unavailable for a whole day.
type DoctorLeave struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	LeaveDate Date      `db:"leave_date" json:"leave_date"`
}

type CreateLeaveRequest struct {
	Date string `json:"date" binding:"required,date"`
}
