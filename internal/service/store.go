package service

import (
	"context"
	"errors"
	"time"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
)

// The interfaces below are the persistence contract the lifecycle services
// consume. The pgx implementations live in internal/repository; tests supply
// in-memory fakes. Lookups return (nil, nil) when the row is absent so the
// services stay storage-engine-agnostic.

// SessionStore persists sessions, answers and results.
type SessionStore interface {
	// FindActiveSession returns the ACTIVE session for (exam, student), or nil.
	FindActiveSession(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, error)

	// CreateSessionIfAbsent atomically creates an ACTIVE session or returns
	// the one a concurrent caller created. All callers converge on one row.
	CreateSessionIfAbsent(ctx context.Context, examID uuid.UUID, studentID int, startedAt, expiresAt time.Time) (*model.ExamSession, error)

	// SweepExpired transitions every expired ACTIVE session of the student to
	// COMPLETED. Swept sessions are never scored.
	SweepExpired(ctx context.Context, studentID int, now time.Time) error

	// GetSession returns the session by id, or nil.
	GetSession(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error)

	// UpsertAnswer saves a selection with last-write-wins semantics on the
	// (session, question) key and resets any stale correctness flag.
	UpsertAnswer(ctx context.Context, sessionID, questionID uuid.UUID, selectedOption string, savedAt time.Time) error

	// ListAnswers returns all saved answers of a session.
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error)

	// TransitionToCompletedIfActive performs the atomic ACTIVE→COMPLETED
	// transition. Returns false when the session was already terminal, so
	// exactly one of any set of racing callers observes true.
	TransitionToCompletedIfActive(ctx context.Context, sessionID uuid.UUID, finishedAt time.Time) (bool, error)

	// MarkAnswerCorrectness writes the scored correctness flags.
	MarkAnswerCorrectness(ctx context.Context, sessionID uuid.UUID, correct map[uuid.UUID]bool) error

	// InsertResult persists the one-time scoring outcome of a session.
	InsertResult(ctx context.Context, res *model.Result) error
}

// AssignmentStore reads an exam's question assignment.
type AssignmentStore interface {
	GetAssignedQuestionCount(ctx context.Context, examID uuid.UUID) (int, error)

	// GetAssignedQuestions returns the ordered paper, correct answers withheld.
	GetAssignedQuestions(ctx context.Context, examID uuid.UUID) ([]model.QuestionForStudent, error)

	// GetCorrectOptions maps question ids to their correct option letter.
	GetCorrectOptions(ctx context.Context, questionIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// BlueprintStore is the write side used by the assembler.
type BlueprintStore interface {
	HasAssignment(ctx context.Context, examID uuid.UUID) (bool, error)

	// PickRandomQuestions draws up to limit distinct question ids uniformly at
	// random from the pool matching subject (and difficulty when non-nil).
	PickRandomQuestions(ctx context.Context, subject string, difficulty *int, limit int) ([]uuid.UUID, error)

	// CreateAssignment persists all rows in one atomic write. Returns false
	// without writing anything when an assignment already exists.
	CreateAssignment(ctx context.Context, examID uuid.UUID, rows []model.AssignedQuestion) (bool, error)
}

// ExamStore reads exam metadata.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// ErrCacheMiss signals an absent cache entry; callers fall back to the store.
var ErrCacheMiss = errors.New("cache miss")

// ResultEvent is the queue payload handed to the stats worker after a
// successful submission.
type ResultEvent struct {
	ExamID      string    `json:"exam_id"`
	SessionID   string    `json:"session_id"`
	StudentID   int       `json:"student_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  *float64  `json:"percentage"`
	CompletedAt time.Time `json:"completed_at"`
}

// SessionCache is the Redis-backed hot path: warmed exam papers and answer
// keys, per-session autosave mirrors, and the result-event queue. Every
// method is best effort — the store stays the source of truth.
type SessionCache interface {
	WarmExam(ctx context.Context, payload *model.ExamPayload, answerKey map[uuid.UUID]string) error
	ExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error)
	AnswerKey(ctx context.Context, examID uuid.UUID) (map[uuid.UUID]string, error)
	CacheAnswer(ctx context.Context, sessionID, questionID uuid.UUID, selectedOption string) error
	CachedAnswers(ctx context.Context, sessionID uuid.UUID) (map[string]string, error)
	ClearSession(ctx context.Context, sessionID uuid.UUID) error
	EnqueueResult(ctx context.Context, ev ResultEvent) error
}
