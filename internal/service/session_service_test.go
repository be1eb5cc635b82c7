package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// memStore is an in-memory, mutex-protected implementation of the storage
// contracts, mirroring the SQL-level guarantees: one ACTIVE session per
// (exam, student), conditional completion, one result per session.
type memStore struct {
	mu       sync.Mutex
	exams    map[uuid.UUID]*model.Exam
	paper    map[uuid.UUID][]model.QuestionForStudent
	correct  map[uuid.UUID]string
	sessions map[uuid.UUID]*model.ExamSession
	answers  map[uuid.UUID]map[uuid.UUID]model.Answer
	results  []model.Result
}

func newMemStore() *memStore {
	return &memStore{
		exams:    make(map[uuid.UUID]*model.Exam),
		paper:    make(map[uuid.UUID][]model.QuestionForStudent),
		correct:  make(map[uuid.UUID]string),
		sessions: make(map[uuid.UUID]*model.ExamSession),
		answers:  make(map[uuid.UUID]map[uuid.UUID]model.Answer),
	}
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[id]
	if !ok {
		return nil, nil
	}
	cp := *exam
	return &cp, nil
}

func (m *memStore) GetAssignedQuestionCount(_ context.Context, examID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paper[examID]), nil
}

func (m *memStore) GetAssignedQuestions(_ context.Context, examID uuid.UUID) ([]model.QuestionForStudent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.QuestionForStudent(nil), m.paper[examID]...), nil
}

func (m *memStore) GetCorrectOptions(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if opt, ok := m.correct[id]; ok {
			out[id] = opt
		}
	}
	return out, nil
}

func (m *memStore) FindActiveSession(_ context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findActiveLocked(examID, studentID), nil
}

func (m *memStore) findActiveLocked(examID uuid.UUID, studentID int) *model.ExamSession {
	for _, s := range m.sessions {
		if s.ExamID == examID && s.StudentID == studentID && s.Status == model.SessionStatusActive {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (m *memStore) CreateSessionIfAbsent(_ context.Context, examID uuid.UUID, studentID int, startedAt, expiresAt time.Time) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.findActiveLocked(examID, studentID); existing != nil {
		return existing, nil
	}
	s := &model.ExamSession{
		ID:        uuid.New(),
		ExamID:    examID,
		StudentID: studentID,
		StartedAt: startedAt,
		ExpiresAt: expiresAt,
		Status:    model.SessionStatusActive,
	}
	m.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *memStore) SweepExpired(_ context.Context, studentID int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.StudentID == studentID && s.Status == model.SessionStatusActive && s.Expired(now) {
			s.Status = model.SessionStatusCompleted
			finished := s.ExpiresAt
			s.FinishedAt = &finished
		}
	}
	return nil
}

func (m *memStore) GetSession(_ context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) UpsertAnswer(_ context.Context, sessionID, questionID uuid.UUID, selectedOption string, savedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.answers[sessionID] == nil {
		m.answers[sessionID] = make(map[uuid.UUID]model.Answer)
	}
	m.answers[sessionID][questionID] = model.Answer{
		SessionID:      sessionID,
		QuestionID:     questionID,
		SelectedOption: selectedOption,
		SavedAt:        savedAt,
	}
	return nil
}

func (m *memStore) ListAnswers(_ context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Answer
	for _, a := range m.answers[sessionID] {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) TransitionToCompletedIfActive(_ context.Context, sessionID uuid.UUID, finishedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.Status != model.SessionStatusActive {
		return false, nil
	}
	s.Status = model.SessionStatusCompleted
	s.FinishedAt = &finishedAt
	return true, nil
}

func (m *memStore) MarkAnswerCorrectness(_ context.Context, sessionID uuid.UUID, correct map[uuid.UUID]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for qid, ok := range correct {
		a, exists := m.answers[sessionID][qid]
		if !exists {
			continue
		}
		v := ok
		a.IsCorrect = &v
		m.answers[sessionID][qid] = a
	}
	return nil
}

func (m *memStore) InsertResult(_ context.Context, res *model.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.results {
		if existing.SessionID == res.SessionID {
			return errors.New("duplicate result")
		}
	}
	cp := *res
	cp.ID = uuid.New()
	m.results = append(m.results, cp)
	return nil
}

func (m *memStore) resultCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

// seedExam builds an exam with n assigned single-correct-option questions.
// Every question's correct option is "A".
func seedExam(store *memStore, durationMinutes, n int) uuid.UUID {
	examID := uuid.New()
	store.exams[examID] = &model.Exam{
		ID:              examID,
		Title:           "Algebra Midterm",
		DurationMinutes: durationMinutes,
	}
	for i := 1; i <= n; i++ {
		qid := uuid.New()
		store.paper[examID] = append(store.paper[examID], model.QuestionForStudent{
			ID:           qid,
			QuestionText: "placeholder",
			OptionA:      "right",
			OptionB:      "wrong",
			Order:        i,
		})
		store.correct[qid] = "A"
	}
	return examID
}

func newEngine(store *memStore) *SessionService {
	return NewSessionService(store, store, store, nil, zerolog.Nop())
}

func TestStartIsIdempotentWhileActive(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 60, 3)
	engine := newEngine(store)
	ctx := context.Background()

	first, err := engine.Start(ctx, examID, 7)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if len(first.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(first.Questions))
	}

	second, err := engine.Start(ctx, examID, 7)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("expected same session, got %s and %s", first.SessionID, second.SessionID)
	}
	if !second.ExpiresAt.Equal(first.ExpiresAt) {
		t.Errorf("expiry must not move on repeat start")
	}
}

func TestStartConcurrentCallersConverge(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 60, 2)
	engine := newEngine(store)

	const callers = 16
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := engine.Start(context.Background(), examID, 42)
			if err != nil {
				t.Errorf("start %d: %v", i, err)
				return
			}
			ids[i] = res.SessionID
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("caller %d got session %s, want %s", i, ids[i], ids[0])
		}
	}
}

func TestStartRejectsUnknownExamAndUnassignedExam(t *testing.T) {
	store := newMemStore()
	engine := newEngine(store)
	ctx := context.Background()

	if _, err := engine.Start(ctx, uuid.New(), 1); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("unknown exam: got %v, want ErrExamNotFound", err)
	}

	examID := seedExam(store, 60, 0)
	if _, err := engine.Start(ctx, examID, 1); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("unassigned exam: got %v, want ErrNotAssigned", err)
	}
}

func TestSaveAnswerLastWriteWins(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 60, 1)
	engine := newEngine(store)
	ctx := context.Background()

	started, err := engine.Start(ctx, examID, 5)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	qid := started.Questions[0].ID

	if err := engine.SaveAnswer(ctx, started.SessionID, 5, qid, "B"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := engine.SaveAnswer(ctx, started.SessionID, 5, qid, "A"); err != nil {
		t.Fatalf("second save: %v", err)
	}

	answers, _ := store.ListAnswers(ctx, started.SessionID)
	if len(answers) != 1 {
		t.Fatalf("expected 1 answer row, got %d", len(answers))
	}
	if answers[0].SelectedOption != "A" {
		t.Errorf("expected last write A, got %s", answers[0].SelectedOption)
	}
}

func TestSaveAnswerRejectedForWrongOwnerAndUnknownSession(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 60, 1)
	engine := newEngine(store)
	ctx := context.Background()

	started, err := engine.Start(ctx, examID, 5)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	qid := started.Questions[0].ID

	if err := engine.SaveAnswer(ctx, started.SessionID, 6, qid, "A"); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("wrong owner: got %v, want ErrSessionInvalid", err)
	}
	if err := engine.SaveAnswer(ctx, uuid.New(), 5, qid, "A"); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("unknown session: got %v, want ErrSessionInvalid", err)
	}
}

func TestExpiredSessionRejectsSaveAndIsSwept(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 60, 1)
	engine := newEngine(store)
	ctx := context.Background()

	started, err := engine.Start(ctx, examID, 9)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	qid := started.Questions[0].ID

	// Force the deadline into the past without any sweep having run.
	store.mu.Lock()
	store.sessions[started.SessionID].ExpiresAt = time.Now().Add(-time.Minute)
	store.mu.Unlock()

	if err := engine.SaveAnswer(ctx, started.SessionID, 9, qid, "A"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expired save: got %v, want ErrSessionInvalid", err)
	}

	// The rejected call must have swept the session to COMPLETED.
	swept, _ := store.GetSession(ctx, started.SessionID)
	if swept.Status != model.SessionStatusCompleted {
		t.Errorf("expected session swept to COMPLETED, got %s", swept.Status)
	}
	if swept.FinishedAt == nil || !swept.FinishedAt.Equal(swept.ExpiresAt) {
		t.Errorf("swept session must carry finished_at = expires_at")
	}
	if store.resultCount() != 0 {
		t.Errorf("swept sessions must never be scored")
	}
}

func TestExpiredSessionNeverScoredOnSubmit(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 60, 1)
	engine := newEngine(store)
	ctx := context.Background()

	started, err := engine.Start(ctx, examID, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	store.mu.Lock()
	store.sessions[started.SessionID].ExpiresAt = time.Now().Add(-time.Second)
	store.mu.Unlock()

	if _, err := engine.Submit(ctx, started.SessionID, 3); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expired submit: got %v, want ErrSessionInvalid", err)
	}
	if store.resultCount() != 0 {
		t.Errorf("expired session produced a result")
	}
}

func TestSubmitScoresOnceAndSecondSubmitFails(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 60, 4)
	engine := newEngine(store)
	ctx := context.Background()

	started, err := engine.Start(ctx, examID, 11)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Answer 3 of 4 correctly, leave the last unanswered.
	for i, q := range started.Questions[:3] {
		opt := "A"
		if i == 2 {
			opt = "B"
		}
		if err := engine.SaveAnswer(ctx, started.SessionID, 11, q.ID, opt); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	summary, err := engine.Submit(ctx, started.SessionID, 11)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if summary.Score != 2 || summary.Total != 4 {
		t.Errorf("got score %d/%d, want 2/4", summary.Score, summary.Total)
	}
	if summary.Percentage == nil || *summary.Percentage != 50.0 {
		t.Errorf("got percentage %v, want 50.00", summary.Percentage)
	}

	if _, err := engine.Submit(ctx, started.SessionID, 11); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("second submit: got %v, want ErrSessionInvalid", err)
	}
	if store.resultCount() != 1 {
		t.Errorf("expected exactly 1 result, got %d", store.resultCount())
	}
}

func TestSubmitConcurrentExactlyOneWins(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 60, 2)
	engine := newEngine(store)
	ctx := context.Background()

	started, err := engine.Start(ctx, examID, 21)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	const callers = 12
	var wins, rejections int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Submit(context.Background(), started.SessionID, 21)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, ErrSessionInvalid) {
				rejections++
			} else {
				t.Errorf("unexpected submit error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 winning submit, got %d", wins)
	}
	if rejections != callers-1 {
		t.Errorf("expected %d rejections, got %d", callers-1, rejections)
	}
	if store.resultCount() != 1 {
		t.Errorf("expected exactly 1 result, got %d", store.resultCount())
	}
}

func TestSubmitWithNoAnswersIsScorable(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 60, 5)
	engine := newEngine(store)
	ctx := context.Background()

	started, err := engine.Start(ctx, examID, 31)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	summary, err := engine.Submit(ctx, started.SessionID, 31)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if summary.Score != 0 || summary.Total != 5 {
		t.Errorf("got %d/%d, want 0/5", summary.Score, summary.Total)
	}
	if summary.Percentage == nil || *summary.Percentage != 0 {
		t.Errorf("got percentage %v, want 0", summary.Percentage)
	}
}

func TestStateReturnsSavedAnswersAndRemainingTime(t *testing.T) {
	store := newMemStore()
	examID := seedExam(store, 30, 2)
	engine := newEngine(store)
	ctx := context.Background()

	started, err := engine.Start(ctx, examID, 8)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	qid := started.Questions[0].ID
	if err := engine.SaveAnswer(ctx, started.SessionID, 8, qid, "C"); err != nil {
		t.Fatalf("save: %v", err)
	}

	state, err := engine.State(ctx, started.SessionID, 8)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.AutosavedAnswers[qid.String()] != "C" {
		t.Errorf("autosaved answer missing, got %v", state.AutosavedAnswers)
	}
	if state.RemainingSeconds <= 0 || state.RemainingSeconds > 30*60 {
		t.Errorf("remaining seconds out of range: %f", state.RemainingSeconds)
	}
}
