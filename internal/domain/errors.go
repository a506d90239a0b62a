package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrExpired            = errors.New("pickup code has expired")
	ErrAlreadyCompleted   = errors.New("package has already been collected")
	ErrCancelled          = errors.New("pickup has been cancelled")
	ErrInvalidPhoneFormat = errors.New("enter a valid Nigerian phone number")

	// ErrCodeCollision is returned by repositories when a generated
	// reference number or pickup code hits a uniqueness constraint.
	ErrCodeCollision = errors.New("generated code already in use")
)

// ValidationError carries per-field messages that the client can correct.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when it has errors and nil otherwise, so callers can
// `return v.OrNil()` without tripping over a typed nil.
func (e *ValidationError) OrNil() error {
	if e == nil || !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Fields[f], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// EligibilityBlockedError is returned when a phone number already has an
// application inside the restriction window.
type EligibilityBlockedError struct {
	Blocking      *Application
	DaysRemaining int
}

func (e *EligibilityBlockedError) Error() string {
	ref := ""
	if e.Blocking != nil {
		ref = e.Blocking.ReferenceNumber
	}
	return fmt.Sprintf("an application (%s) was submitted recently with this phone number; you can apply again in %d day(s)", ref, e.DaysRemaining)
}
