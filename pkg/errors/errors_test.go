package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NotFound("doctor", nil), http.StatusNotFound},
		{BadRequest("bad", nil), http.StatusBadRequest},
		{Conflict("Slot already booked", nil), http.StatusConflict},
		{Unauthorized("invalid token", nil), http.StatusUnauthorized},
		{Forbidden(nil), http.StatusForbidden},
		{Internal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.HTTPStatus(), tc.err.Message)
	}
}

func TestAsThroughWrapping(t *testing.T) {
	base := Conflict("Slot already booked", nil)
	wrapped := fmt.Errorf("failed to book appointment: %w", base)

	got, ok := As(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, got)
	assert.True(t, IsCode(wrapped, ErrConflict))
	assert.False(t, IsCode(wrapped, ErrNotFound))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrConflict))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := NotFound("appointment", fmt.Errorf("sql: no rows in result set"))
	assert.Equal(t, "appointment not found: sql: no rows in result set", err.Error())
	assert.Equal(t, "appointment not found", NotFound("appointment", nil).Error())
}
