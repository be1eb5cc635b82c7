package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the one-time scoring outcome of a session. A session has at most
// one Result; Percentage is nil when the exam had no assigned questions.
type Result struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	ExamID      uuid.UUID `json:"exam_id"`
	StudentID   int       `json:"student_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  *float64  `json:"percentage"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// ExamResultRow is a scored result joined with the student who produced it,
// as listed on the admin side.
type ExamResultRow struct {
	SessionID    uuid.UUID `json:"session_id"`
	StudentID    int       `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	Score        int       `json:"score"`
	Total        int       `json:"total"`
	Percentage   *float64  `json:"percentage"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}
