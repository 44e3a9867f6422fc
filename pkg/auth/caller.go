package auth

import "github.com/google/uuid"

// Context keys under which the auth middleware stores the caller.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Caller is the authenticated user behind a request.
type Caller struct {
	UserID uuid.UUID
	Role   string
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Owns reports whether the caller may act on a record linked to owner.
// Admins own everything; a record with no linked user belongs to no one else.
func (c Caller) Owns(owner *uuid.UUID) bool {
	if c.IsAdmin() {
		return true
	}
	return owner != nil && *owner == c.UserID
}
