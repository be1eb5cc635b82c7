package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionService owns the exam session lifecycle: creation, expiry
// enforcement, answer autosave admission, and one-time scoring at submission.
// Expiry is fully lazy — there is no background timer; expired sessions are
// swept on the next start, autosave or submit that touches them.
type SessionService struct {
	sessions    SessionStore
	assignments AssignmentStore
	exams       ExamStore
	cache       SessionCache // optional; nil disables the Redis hot path
	log         zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessions SessionStore,
	assignments AssignmentStore,
	exams ExamStore,
	cache SessionCache,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		assignments: assignments,
		exams:       exams,
		cache:       cache,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// StartExamResult is what a student receives when a session starts (or when
// start is repeated while the session is live). Correct answers are withheld.
type StartExamResult struct {
	SessionID uuid.UUID                  `json:"session_id"`
	ExpiresAt time.Time                  `json:"expires_at"`
	Questions []model.QuestionForStudent `json:"questions"`
}

// SessionState is the reload payload: autosaved selections plus the remaining
// time, so a refreshed client can restore its paper.
type SessionState struct {
	SessionID        uuid.UUID         `json:"session_id"`
	ExamID           uuid.UUID         `json:"exam_id"`
	AutosavedAnswers map[string]string `json:"autosaved_answers"`
	RemainingSeconds float64           `json:"remaining_seconds"`
}

// Start begins (or resumes) the student's session for an exam. While an
// ACTIVE, non-expired session exists the call is idempotent: the same session
// id comes back and no new draw or timer happens.
func (s *SessionService) Start(ctx context.Context, examID uuid.UUID, studentID int) (*StartExamResult, error) {
	now := time.Now()

	if err := s.sessions.SweepExpired(ctx, studentID, now); err != nil {
		return nil, fmt.Errorf("sweep expired sessions: %w", err)
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}

	existing, err := s.sessions.FindActiveSession(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}
	if existing != nil && !existing.Expired(now) {
		questions, err := s.paper(ctx, examID)
		if err != nil {
			return nil, err
		}
		return &StartExamResult{
			SessionID: existing.ID,
			ExpiresAt: existing.ExpiresAt,
			Questions: questions,
		}, nil
	}

	count, err := s.assignments.GetAssignedQuestionCount(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("count assigned questions: %w", err)
	}
	if count == 0 {
		return nil, ErrNotAssigned
	}

	expiresAt := now.Add(time.Duration(exam.DurationMinutes) * time.Minute)
	session, err := s.sessions.CreateSessionIfAbsent(ctx, examID, studentID, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	questions, err := s.paper(ctx, examID)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Time("expires_at", session.ExpiresAt).
		Msg("Session started")

	return &StartExamResult{
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		Questions: questions,
	}, nil
}

// SaveAnswer admits an autosave while the session is valid and upserts the
// selection with last-write-wins semantics. Admission requires the session to
// exist, belong to the caller, be ACTIVE and not past its expiry — expired
// sessions are swept and the save rejected regardless of sweep timing.
func (s *SessionService) SaveAnswer(ctx context.Context, sessionID uuid.UUID, studentID int, questionID uuid.UUID, selectedOption string) error {
	now := time.Now()

	if _, err := s.admit(ctx, sessionID, studentID, now); err != nil {
		return err
	}

	if err := s.sessions.UpsertAnswer(ctx, sessionID, questionID, selectedOption, now); err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}

	// Mirror into the session hash so a reload can restore selections fast.
	if s.cache != nil {
		if err := s.cache.CacheAnswer(ctx, sessionID, questionID, selectedOption); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Answer cache write failed")
		}
	}

	return nil
}

// Submit finalizes the session and scores it exactly once. The
// ACTIVE→COMPLETED transition is a single conditional write: of any racing
// submits (or a racing sweep), exactly one caller proceeds to scoring and the
// rest get ErrSessionInvalid.
func (s *SessionService) Submit(ctx context.Context, sessionID uuid.UUID, studentID int) (*ScoreSummary, error) {
	now := time.Now()

	session, err := s.admit(ctx, sessionID, studentID, now)
	if err != nil {
		return nil, err
	}

	won, err := s.sessions.TransitionToCompletedIfActive(ctx, sessionID, now)
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	if !won {
		// A concurrent submit or sweep moved the state first.
		return nil, ErrSessionInvalid
	}

	total, err := s.assignments.GetAssignedQuestionCount(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("count assigned questions: %w", err)
	}

	answers, err := s.sessions.ListAnswers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	correctOptions, err := s.answerKey(ctx, session.ExamID, answers)
	if err != nil {
		return nil, err
	}

	summary, correctness := Score(answers, correctOptions, total)

	if len(correctness) > 0 {
		if err := s.sessions.MarkAnswerCorrectness(ctx, sessionID, correctness); err != nil {
			return nil, fmt.Errorf("mark correctness: %w", err)
		}
	}

	result := &model.Result{
		SessionID:   sessionID,
		ExamID:      session.ExamID,
		StudentID:   session.StudentID,
		Score:       summary.Score,
		Total:       summary.Total,
		Percentage:  summary.Percentage,
		StartedAt:   session.StartedAt,
		CompletedAt: now,
	}
	if err := s.sessions.InsertResult(ctx, result); err != nil {
		return nil, fmt.Errorf("insert result: %w", err)
	}

	s.afterSubmit(ctx, session, summary, now)

	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("score", summary.Score).
		Int("total", summary.Total).
		Msg("Session submitted and scored")

	return &summary, nil
}

// State returns the reload payload for an ACTIVE session: autosaved answers
// (cache first, store fallback) and the remaining seconds.
func (s *SessionService) State(ctx context.Context, sessionID uuid.UUID, studentID int) (*SessionState, error) {
	now := time.Now()

	session, err := s.admit(ctx, sessionID, studentID, now)
	if err != nil {
		return nil, err
	}

	saved := s.cachedAnswers(ctx, sessionID)
	if saved == nil {
		answers, err := s.sessions.ListAnswers(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("list answers: %w", err)
		}
		saved = make(map[string]string, len(answers))
		for _, a := range answers {
			saved[a.QuestionID.String()] = a.SelectedOption
		}
	}

	remaining := session.ExpiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return &SessionState{
		SessionID:        session.ID,
		ExamID:           session.ExamID,
		AutosavedAnswers: saved,
		RemainingSeconds: remaining.Seconds(),
	}, nil
}

// GetOwnedActiveSession returns the session when it exists, belongs to the
// student and is still ACTIVE and unexpired. Used by the clock stream.
func (s *SessionService) GetOwnedActiveSession(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.ExamSession, error) {
	return s.admit(ctx, sessionID, studentID, time.Now())
}

// ─── internal ────────────────────────────────────────────────────────────

// admit performs the shared admission check for saveAnswer/submit/state.
// An expired-but-unswept session is swept here, then rejected: expiry always
// wins the race against a late call.
func (s *SessionService) admit(ctx context.Context, sessionID uuid.UUID, studentID int, now time.Time) (*model.ExamSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil || session.StudentID != studentID {
		return nil, ErrSessionInvalid
	}
	if session.Status != model.SessionStatusActive {
		return nil, ErrSessionInvalid
	}
	if session.Expired(now) {
		if err := s.sessions.SweepExpired(ctx, studentID, now); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Lazy sweep failed")
		}
		return nil, ErrSessionInvalid
	}
	return session, nil
}

// paper returns the ordered question list, correct answers withheld. Cache
// first, store fallback.
func (s *SessionService) paper(ctx context.Context, examID uuid.UUID) ([]model.QuestionForStudent, error) {
	if s.cache != nil {
		payload, err := s.cache.ExamPayload(ctx, examID)
		if err == nil {
			return payload.Questions, nil
		}
	}

	questions, err := s.assignments.GetAssignedQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get assigned questions: %w", err)
	}
	return questions, nil
}

// answerKey resolves correct options for the answered questions, preferring
// the warmed Redis key over a store round-trip.
func (s *SessionService) answerKey(ctx context.Context, examID uuid.UUID, answers []model.Answer) (map[uuid.UUID]string, error) {
	if s.cache != nil {
		key, err := s.cache.AnswerKey(ctx, examID)
		if err == nil {
			return key, nil
		}
	}

	ids := make([]uuid.UUID, len(answers))
	for i, a := range answers {
		ids[i] = a.QuestionID
	}
	key, err := s.assignments.GetCorrectOptions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get correct options: %w", err)
	}
	return key, nil
}

func (s *SessionService) cachedAnswers(ctx context.Context, sessionID uuid.UUID) map[string]string {
	if s.cache == nil {
		return nil
	}
	saved, err := s.cache.CachedAnswers(ctx, sessionID)
	if err != nil || len(saved) == 0 {
		return nil
	}
	return saved
}

// afterSubmit handles the non-critical tail of a submission: the stats event
// and the autosave mirror. Failures only log.
func (s *SessionService) afterSubmit(ctx context.Context, session *model.ExamSession, summary ScoreSummary, completedAt time.Time) {
	if s.cache == nil {
		return
	}

	ev := ResultEvent{
		ExamID:      session.ExamID.String(),
		SessionID:   session.ID.String(),
		StudentID:   session.StudentID,
		Score:       summary.Score,
		Total:       summary.Total,
		Percentage:  summary.Percentage,
		CompletedAt: completedAt,
	}
	if err := s.cache.EnqueueResult(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Result event enqueue failed")
	}

	if err := s.cache.ClearSession(ctx, session.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Session cache clear failed")
	}
}
