package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer is a student's autosaved selection for one question in one session.
// Re-saving the same (session, question) overwrites the prior selection.
// IsCorrect stays nil until the session is scored.
type Answer struct {
	SessionID      uuid.UUID `json:"session_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption string    `json:"selected_option"`
	IsCorrect      *bool     `json:"is_correct,omitempty"`
	SavedAt        time.Time `json:"saved_at"`
}
