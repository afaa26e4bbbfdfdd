package service

import (
	"errors"
	"fmt"

	"github.com/leathercraft-class-submissions/internal/models"
)

var (
	// ErrNotFound is returned when an id matches neither a submission nor a metaobject
	ErrNotFound = errors.New("submission not found")
	// ErrInvalidTransition is returned for moves the workflow does not allow
	ErrInvalidTransition = errors.New("invalid status transition")
)

// BatchValidationError rejects a whole batch; nothing was persisted
type BatchValidationError struct {
	RowErrors []models.RowError
}

func (e *BatchValidationError) Error() string {
	return fmt.Sprintf("%d of the submitted rows failed validation", len(e.RowErrors))
}

func transitionError(from models.Status, action string) error {
	return fmt.Errorf("%w: cannot %s a %s submission", ErrInvalidTransition, action, from)
}

// PartialError is returned when an approve-and-publish approved the entry but
// could not publish it. Result holds the state that was reached.
type PartialError struct {
	Result *models.ModerationResult
	Err    error
}

func (e *PartialError) Error() string {
	return "approved but not published: " + e.Err.Error()
}

func (e *PartialError) Unwrap() error { return e.Err }
