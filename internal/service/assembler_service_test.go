package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type poolQuestion struct {
	id         uuid.UUID
	subject    string
	difficulty int
}

// memPool is an in-memory question pool plus assignment table. CreateAssignment
// mimics the unique-index behavior: the first writer wins, later writers get
// created=false with nothing persisted.
type memPool struct {
	mu        sync.Mutex
	questions []poolQuestion
	assigned  map[uuid.UUID][]model.AssignedQuestion
}

func newMemPool() *memPool {
	return &memPool{assigned: make(map[uuid.UUID][]model.AssignedQuestion)}
}

func (p *memPool) addQuestions(subject string, difficulty, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		p.questions = append(p.questions, poolQuestion{id: uuid.New(), subject: subject, difficulty: difficulty})
	}
}

func (p *memPool) HasAssignment(_ context.Context, examID uuid.UUID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.assigned[examID]) > 0, nil
}

func (p *memPool) PickRandomQuestions(_ context.Context, subject string, difficulty *int, limit int) ([]uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matching []uuid.UUID
	for _, q := range p.questions {
		if q.subject != subject {
			continue
		}
		if difficulty != nil && q.difficulty != *difficulty {
			continue
		}
		matching = append(matching, q.id)
	}
	rand.Shuffle(len(matching), func(i, j int) { matching[i], matching[j] = matching[j], matching[i] })
	if len(matching) > limit {
		matching = matching[:limit]
	}
	return matching, nil
}

func (p *memPool) CreateAssignment(_ context.Context, examID uuid.UUID, rows []model.AssignedQuestion) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.assigned[examID]) > 0 {
		return false, nil
	}
	p.assigned[examID] = append([]model.AssignedQuestion(nil), rows...)
	return true, nil
}

func (p *memPool) GetAssignedQuestionCount(_ context.Context, examID uuid.UUID) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.assigned[examID]), nil
}

func (p *memPool) GetAssignedQuestions(_ context.Context, examID uuid.UUID) ([]model.QuestionForStudent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.QuestionForStudent
	for _, row := range p.assigned[examID] {
		out = append(out, model.QuestionForStudent{ID: row.QuestionID, Order: row.Order})
	}
	return out, nil
}

func (p *memPool) GetCorrectOptions(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		out[id] = "A"
	}
	return out, nil
}

func newAssembler(pool *memPool, exams *memStore) *AssemblerService {
	return NewAssemblerService(pool, pool, exams, nil, zerolog.Nop())
}

func seedExamOnly(store *memStore) uuid.UUID {
	examID := uuid.New()
	store.exams[examID] = &model.Exam{ID: examID, Title: "Physics Final", DurationMinutes: 90}
	return examID
}

func intptr(v int) *int { return &v }

func TestAssignDrawsDenseOrderAcrossBlocks(t *testing.T) {
	pool := newMemPool()
	pool.addQuestions("math", 2, 10)
	pool.addQuestions("physics", 3, 10)

	exams := newMemStore()
	examID := seedExamOnly(exams)

	rows, err := newAssembler(pool, exams).Assign(context.Background(), examID, []model.BlueprintBlock{
		{Subject: "math", Difficulty: intptr(2), Count: 4},
		{Subject: "physics", Count: 3},
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(rows))
	}
	seen := make(map[uuid.UUID]bool)
	for i, row := range rows {
		if row.Order != i+1 {
			t.Errorf("row %d has order %d, want dense 1-based", i, row.Order)
		}
		if seen[row.QuestionID] {
			t.Errorf("question %s drawn twice", row.QuestionID)
		}
		seen[row.QuestionID] = true
	}
}

func TestAssignRejectsInvalidBlueprints(t *testing.T) {
	pool := newMemPool()
	exams := newMemStore()
	examID := seedExamOnly(exams)
	asm := newAssembler(pool, exams)
	ctx := context.Background()

	cases := [][]model.BlueprintBlock{
		nil,
		{},
		{{Subject: "", Count: 3}},
		{{Subject: "math", Count: 0}},
		{{Subject: "math", Count: 2}, {Subject: "physics", Count: -1}},
	}
	for i, blueprint := range cases {
		if _, err := asm.Assign(ctx, examID, blueprint); !errors.Is(err, ErrInvalidBlueprint) {
			t.Errorf("case %d: got %v, want ErrInvalidBlueprint", i, err)
		}
	}
}

func TestAssignFailsWholeOnShortBlock(t *testing.T) {
	pool := newMemPool()
	pool.addQuestions("math", 1, 5)
	pool.addQuestions("history", 1, 2)

	exams := newMemStore()
	examID := seedExamOnly(exams)

	_, err := newAssembler(pool, exams).Assign(context.Background(), examID, []model.BlueprintBlock{
		{Subject: "math", Count: 3},
		{Subject: "history", Count: 4}, // only 2 available
	})

	var insufficient *InsufficientQuestionsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want InsufficientQuestionsError", err)
	}
	if insufficient.Subject != "history" {
		t.Errorf("got subject %q, want history", insufficient.Subject)
	}

	// All-or-nothing: nothing may be persisted for the exam.
	if has, _ := pool.HasAssignment(context.Background(), examID); has {
		t.Errorf("partial assignment persisted after failed block")
	}
}

func TestAssignSecondAttemptRejected(t *testing.T) {
	pool := newMemPool()
	pool.addQuestions("math", 1, 10)

	exams := newMemStore()
	examID := seedExamOnly(exams)
	asm := newAssembler(pool, exams)
	ctx := context.Background()

	blueprint := []model.BlueprintBlock{{Subject: "math", Count: 3}}
	if _, err := asm.Assign(ctx, examID, blueprint); err != nil {
		t.Fatalf("first assign: %v", err)
	}

	if _, err := asm.Assign(ctx, examID, blueprint); !errors.Is(err, ErrAlreadyAssigned) {
		t.Errorf("second assign: got %v, want ErrAlreadyAssigned", err)
	}

	rows := pool.assigned[examID]
	if len(rows) != 3 {
		t.Errorf("second attempt changed the assignment: %d rows", len(rows))
	}
}

func TestAssignUnknownExamRejected(t *testing.T) {
	pool := newMemPool()
	pool.addQuestions("math", 1, 10)
	exams := newMemStore()

	_, err := newAssembler(pool, exams).Assign(context.Background(), uuid.New(),
		[]model.BlueprintBlock{{Subject: "math", Count: 1}})
	if !errors.Is(err, ErrExamNotFound) {
		t.Errorf("got %v, want ErrExamNotFound", err)
	}
}
