package service

import (
	"context"
	"fmt"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AssemblerService assembles an exam's question set from a blueprint.
// Assignment happens exactly once per exam; a second attempt is rejected,
// never merged.
type AssemblerService struct {
	store BlueprintStore
	reads AssignmentStore
	exams ExamStore
	cache SessionCache // optional; nil disables warming
	log   zerolog.Logger
}

// NewAssemblerService creates a new AssemblerService.
func NewAssemblerService(
	store BlueprintStore,
	reads AssignmentStore,
	exams ExamStore,
	cache SessionCache,
	log zerolog.Logger,
) *AssemblerService {
	return &AssemblerService{
		store: store,
		reads: reads,
		exams: exams,
		cache: cache,
		log:   log.With().Str("component", "assembler_service").Logger(),
	}
}

// Assign draws the blueprint's questions uniformly at random without
// replacement and persists the assignment in one all-or-nothing write.
// Order is a dense 1-based sequence continuing across blocks.
func (s *AssemblerService) Assign(ctx context.Context, examID uuid.UUID, blueprint []model.BlueprintBlock) ([]model.AssignedQuestion, error) {
	if len(blueprint) == 0 {
		return nil, ErrInvalidBlueprint
	}
	for _, block := range blueprint {
		if block.Subject == "" || block.Count < 1 {
			return nil, ErrInvalidBlueprint
		}
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}

	assigned, err := s.store.HasAssignment(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("check assignment: %w", err)
	}
	if assigned {
		return nil, ErrAlreadyAssigned
	}

	// Draw every block before writing anything, so an unsatisfiable block
	// leaves no partial assignment behind.
	var rows []model.AssignedQuestion
	order := 1
	for _, block := range blueprint {
		ids, err := s.store.PickRandomQuestions(ctx, block.Subject, block.Difficulty, block.Count)
		if err != nil {
			return nil, fmt.Errorf("pick questions: %w", err)
		}
		if len(ids) < block.Count {
			return nil, &InsufficientQuestionsError{Subject: block.Subject}
		}
		for _, id := range ids {
			rows = append(rows, model.AssignedQuestion{QuestionID: id, Order: order})
			order++
		}
	}

	created, err := s.store.CreateAssignment(ctx, examID, rows)
	if err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	if !created {
		// A concurrent assign won the race.
		return nil, ErrAlreadyAssigned
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("questions", len(rows)).
		Msg("Questions assigned")

	s.warmCache(ctx, exam)

	return rows, nil
}

// warmCache loads the freshly assigned paper and answer key into Redis so
// session starts and grading skip PostgreSQL. Failures only log — the store
// fallback covers a cold cache.
func (s *AssemblerService) warmCache(ctx context.Context, exam *model.Exam) {
	if s.cache == nil {
		return
	}

	questions, err := s.reads.GetAssignedQuestions(ctx, exam.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Cache warm skipped: list questions")
		return
	}

	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	answerKey, err := s.reads.GetCorrectOptions(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Cache warm skipped: answer key")
		return
	}

	payload := &model.ExamPayload{
		ExamID:    exam.ID,
		Title:     exam.Title,
		Duration:  exam.DurationMinutes,
		Questions: questions,
	}

	if err := s.cache.WarmExam(ctx, payload, answerKey); err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Cache warm failed")
		return
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
}
