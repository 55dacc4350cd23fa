package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + " " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Add records a failure for field.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Err returns e if it holds any errors, or nil.
func (e *ValidationError) Err() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// Required records an "is required" failure when value is empty.
func (e *ValidationError) Required(field, value string) {
	if value == "" {
		e.Add(field, "is required")
	}
}

// ValidateStatus checks that s is one of the known statuses.
func ValidateStatus(s Status) error {
	if s.IsValid() {
		return nil
	}
	var ve ValidationError
	ve.Add("status", fmt.Sprintf("must be one of idle, busy, waiting, stopped; got %q", s))
	return &ve
}

// ValidateIssues checks that every issue carries a positive number.
func ValidateIssues(issues []GitHubIssue) error {
	var ve ValidationError
	for i, issue := range issues {
		if issue.Number <= 0 {
			ve.Add(fmt.Sprintf("githubIssues[%d].number", i), fmt.Sprintf("must be positive, got %d", issue.Number))
		}
	}
	return ve.Err()
}
