package catalog

import "fmt"

// NotFoundError indicates a catalog entity does not exist
type NotFoundError struct {
	Entity string // "permission", "module", "template"
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// ValidationError indicates malformed or inconsistent catalog input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError indicates a uniqueness or system-lock violation
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
