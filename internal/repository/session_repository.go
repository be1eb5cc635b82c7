package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles exam session, answer and result data access.
// It implements the session store contract consumed by the lifecycle engine.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, exam_id, student_id, started_at, expires_at, finished_at, status`

// FindActiveSession retrieves the ACTIVE session for an exam-student
// combination, or nil when none exists.
func (r *SessionRepository) FindActiveSession(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE exam_id = $1 AND student_id = $2 AND status = $3`,
		examID, studentID, model.SessionStatusActive,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.StartedAt, &s.ExpiresAt, &s.FinishedAt, &s.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSessionIfAbsent inserts a new ACTIVE session, or returns the existing
// one when a concurrent caller won the race. The partial unique index on
// (exam_id, student_id) WHERE status = 'ACTIVE' makes the insert atomic.
func (r *SessionRepository) CreateSessionIfAbsent(ctx context.Context, examID uuid.UUID, studentID int, startedAt, expiresAt time.Time) (*model.ExamSession, error) {
	s := &model.ExamSession{
		ExamID:    examID,
		StudentID: studentID,
		Status:    model.SessionStatusActive,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, student_id, started_at, expires_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (exam_id, student_id) WHERE status = 'ACTIVE' DO NOTHING
		 RETURNING id, started_at, expires_at`,
		examID, studentID, startedAt, expiresAt, model.SessionStatusActive,
	).Scan(&s.ID, &s.StartedAt, &s.ExpiresAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// Concurrent start detected — converge on the winner's row.
		existing, fetchErr := r.FindActiveSession(ctx, examID, studentID)
		if fetchErr != nil {
			return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("concurrent start detected, but no active session found")
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SweepExpired transitions all expired ACTIVE sessions of a student to
// COMPLETED. Swept sessions keep their expiry instant as finished_at.
func (r *SessionRepository) SweepExpired(ctx context.Context, studentID int, now time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, finished_at = expires_at
		 WHERE student_id = $2 AND status = $3 AND expires_at <= $4`,
		model.SessionStatusCompleted, studentID, model.SessionStatusActive, now)
	return err
}

// GetSession retrieves a session by id, or nil when it does not exist.
func (r *SessionRepository) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, sessionID,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.StartedAt, &s.ExpiresAt, &s.FinishedAt, &s.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpsertAnswer saves a selection with last-write-wins semantics. A re-save
// clears any correctness flag left by an earlier scoring run.
func (r *SessionRepository) UpsertAnswer(ctx context.Context, sessionID, questionID uuid.UUID, selectedOption string, savedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answers (session_id, question_id, selected_option, saved_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET selected_option = EXCLUDED.selected_option,
		     saved_at = EXCLUDED.saved_at,
		     is_correct = NULL`,
		sessionID, questionID, selectedOption, savedAt)
	return err
}

// ListAnswers retrieves all saved answers of a session.
func (r *SessionRepository) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, question_id, selected_option, is_correct, saved_at
		 FROM answers WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.SelectedOption, &a.IsCorrect, &a.SavedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// TransitionToCompletedIfActive performs the atomic ACTIVE→COMPLETED guard.
// Exactly one of any set of racing callers sees true.
func (r *SessionRepository) TransitionToCompletedIfActive(ctx context.Context, sessionID uuid.UUID, finishedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, finished_at = $2
		 WHERE id = $3 AND status = $4`,
		model.SessionStatusCompleted, finishedAt, sessionID, model.SessionStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkAnswerCorrectness bulk-writes the scored correctness flags via UNNEST.
func (r *SessionRepository) MarkAnswerCorrectness(ctx context.Context, sessionID uuid.UUID, correct map[uuid.UUID]bool) error {
	if len(correct) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(correct))
	flags := make([]bool, 0, len(correct))
	for id, ok := range correct {
		ids = append(ids, id)
		flags = append(flags, ok)
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE answers AS a
		 SET is_correct = t.is_correct
		 FROM (
			SELECT u.question_id, u.is_correct
			FROM UNNEST($2::uuid[], $3::bool[]) AS u (question_id, is_correct)
		 ) AS t
		 WHERE a.session_id = $1 AND a.question_id = t.question_id`,
		sessionID, ids, flags)
	return err
}

// InsertResult persists the one-time scoring outcome. The UNIQUE constraint
// on session_id backs the at-most-one-result invariant.
func (r *SessionRepository) InsertResult(ctx context.Context, res *model.Result) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO results (session_id, exam_id, student_id, score, total, percentage, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		res.SessionID, res.ExamID, res.StudentID, res.Score, res.Total,
		res.Percentage, res.StartedAt, res.CompletedAt,
	).Scan(&res.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
