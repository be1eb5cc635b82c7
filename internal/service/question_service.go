package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/ereas/ereas-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// similarityThreshold is the trigram score above which a new question is
// treated as a duplicate of an existing one in the same subject.
const similarityThreshold = 0.85

// ErrDuplicateQuestion is returned when a near-identical question already
// exists in the pool.
type ErrDuplicateQuestion struct {
	ExistingID uuid.UUID
	Similarity float64
}

func (e *ErrDuplicateQuestion) Error() string {
	return fmt.Sprintf("question too similar to existing question %s (similarity %.2f)", e.ExistingID, e.Similarity)
}

// QuestionService handles the question pool.
type QuestionService struct {
	questions *repository.QuestionRepository
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions *repository.QuestionRepository, log zerolog.Logger) *QuestionService {
	return &QuestionService{questions: questions, log: log.With().Str("component", "question_service").Logger()}
}

// Create adds a question to the pool after a trigram duplicate check against
// existing questions in the same subject.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest, createdBy int) (*model.Question, error) {
	existing, score, err := s.questions.FindMostSimilar(ctx, req.Subject, req.QuestionText, similarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("similarity check: %w", err)
	}
	if existing != nil {
		return nil, &ErrDuplicateQuestion{ExistingID: existing.ID, Similarity: score}
	}

	question, err := s.questions.Create(ctx, req, createdBy)
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	s.log.Info().
		Str("question_id", question.ID.String()).
		Str("subject", question.Subject).
		Int("difficulty", question.Difficulty).
		Msg("Question created")
	return question, nil
}

// List returns a filtered page of questions with the total count.
func (s *QuestionService) List(ctx context.Context, subject string, difficulty *int, page, limit int) ([]model.Question, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if difficulty != nil && (*difficulty < 1 || *difficulty > 5) {
		return nil, 0, errors.New("difficulty out of range")
	}

	questions, total, err := s.questions.List(ctx, subject, difficulty, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	return questions, total, nil
}
