package model

import (
	"github.com/google/uuid"
)

type Patient struct {
	ID       uuid.UUID  `db:"id" json:"id"`
	UserID   *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	FullName string     `db:"full_name" json:"full_name"`
	Age      int        `db:"age" json:"age"`
	Gender   string     `db:"gender" json:"gender"`
	Phone    string     `db:"phone" json:"phone"`
}

type CreatePatientRequest struct {
	UserID   *uuid.UUID `json:"user_id"`
	FullName string     `json:"full_name" binding:"required,max=120"`
	Age      int        `json:"age" binding:"gte=0,lte=130"`
	Gender   string     `json:"gender" binding:"required,oneof=male female other"`
	Phone    string     `json:"phone" binding:"required,min=7,max=20"`
}
