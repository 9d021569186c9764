package entitlement

import (
	"fmt"
	"strings"
)

// DependencyError reports a grant blocked by unmet prerequisites. Missing
// holds every unmet key, not just the first, so callers can fix all of
// them in one pass.
type DependencyError struct {
	PermissionKey string
	Missing       []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("permission %s requires: %s", e.PermissionKey, strings.Join(e.Missing, ", "))
}

// NotFoundError indicates an unknown user, company, or entity. Resolution
// never degrades to a partial or default result on lookup failure.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// AuthorizationError indicates the actor may not perform the operation.
// The API layer reports it as not-found to avoid leaking existence across
// tenants.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

// ConflictError indicates the operation contradicts current state
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
