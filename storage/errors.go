package storage

import "fmt"

// ValidationError reports input the store refused to apply.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Validation marks the error as a bad-input failure for the handler boundary.
func (e *ValidationError) Validation() {}

// NotFoundError reports an unknown task id.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("task %d not found", e.ID) }

// NotFound marks the error as a missing-resource failure for the handler boundary.
func (e *NotFoundError) NotFound() {}
