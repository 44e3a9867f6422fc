package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCallerOwns(t *testing.T) {
	me, other := uuid.New(), uuid.New()

	tests := []struct {
		name   string
		caller Caller
		owner  *uuid.UUID
		want   bool
	}{
		{"own record", Caller{UserID: me, Role: RoleDoctor}, &me, true},
		{"someone else's record", Caller{UserID: me, Role: RoleDoctor}, &other, false},
		{"unlinked record", Caller{UserID: me, Role: RolePatient}, nil, false},
		{"admin", Caller{Role: RoleAdmin}, &other, true},
		{"admin on unlinked record", Caller{Role: RoleAdmin}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.caller.Owns(tt.owner))
		})
	}
}
