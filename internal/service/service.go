// Package service holds what the domain services share: the clinic calendar
// and the mapping from store errors to API errors.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

// Calendar answers "what day is it" in the clinic's time zone.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{Location: loc, Now: time.Now}
}

func (c Calendar) Current() time.Time {
	return c.Now().In(c.Location)
}

func (c Calendar) Today() model.Date {
	return model.DateOf(c.Current())
}

// Lookup turns a failed single-row read into a not-found or internal error.
func Lookup(err error, resource string) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Internal(err)
}

// Internal wraps a persistence failure unless err already carries an API
// error.
func Internal(err error, action string) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(fmt.Errorf("failed to %s: %w", action, err))
}
