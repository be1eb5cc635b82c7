package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// ExamSession represents a student's timed attempt at one exam.
// At most one ACTIVE session exists per (exam, student) at any instant.
type ExamSession struct {
	ID         uuid.UUID     `json:"id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	StudentID  int           `json:"student_id"`
	StartedAt  time.Time     `json:"started_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Status     SessionStatus `json:"status"`
}

// Expired reports whether the session's time allotment has passed at now.
func (s *ExamSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SaveAnswerRequest is the payload for autosaving a selected option.
type SaveAnswerRequest struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedOption string    `json:"selected_option" binding:"required,oneof=A B C D E"`
}
