package service

import (
	"errors"
	"fmt"
)

// Domain errors surfaced by the exam lifecycle services. Handlers map these
// to stable API error codes; anything else wrapping a store failure is
// treated as a retryable store outage.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrInvalidBlueprint = errors.New("blueprint is empty or a block is missing subject/count")
	ErrAlreadyAssigned  = errors.New("questions already assigned to this exam")
	ErrNotAssigned      = errors.New("exam questions not assigned yet")

	// ErrSessionInvalid covers every terminal session rejection: unknown id,
	// wrong owner, expired, or already completed. Callers get no distinction
	// on purpose; diagnostics go to the log instead.
	ErrSessionInvalid = errors.New("exam session is invalid")
)

// InsufficientQuestionsError reports which blueprint block could not be
// satisfied. The whole assignment fails; nothing is persisted.
type InsufficientQuestionsError struct {
	Subject string
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("not enough questions for subject: %s", e.Subject)
}
