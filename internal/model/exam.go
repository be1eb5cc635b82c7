package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam entity. Immutable once questions are assigned.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedBy       int       `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// ExamPayload is the Redis-cached paper sent to students (no correct answers).
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}
