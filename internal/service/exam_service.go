package service

import (
	"context"
	"fmt"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/ereas/ereas-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExamService handles the admin side of exams: creation, listing, and scored
// result retrieval.
type ExamService struct {
	exams *repository.ExamRepository
	log   zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams *repository.ExamRepository, log zerolog.Logger) *ExamService {
	return &ExamService{exams: exams, log: log.With().Str("component", "exam_service").Logger()}
}

// Create creates a new exam.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest, createdBy int) (*model.Exam, error) {
	exam, err := s.exams.Create(ctx, req.Title, req.DurationMinutes, createdBy)
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Int("duration_minutes", exam.DurationMinutes).
		Msg("Exam created")
	return exam, nil
}

// GetByID returns the exam, or ErrExamNotFound.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

// List returns a page of exams with the total count.
func (s *ExamService) List(ctx context.Context, page, limit int) ([]model.Exam, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	exams, total, err := s.exams.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}
	return exams, total, nil
}

// Results returns all scored results for an exam.
func (s *ExamService) Results(ctx context.Context, examID uuid.UUID) ([]model.ExamResultRow, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}

	results, err := s.exams.ListResults(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}
