package repository

import (
	"context"
	"errors"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam persistence.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// Create inserts a new exam and returns it with generated fields filled in.
func (r *ExamRepository) Create(ctx context.Context, title string, durationMinutes, createdBy int) (*model.Exam, error) {
	exam := &model.Exam{
		Title:           title,
		DurationMinutes: durationMinutes,
		CreatedBy:       createdBy,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, duration_minutes, created_by)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		title, durationMinutes, createdBy,
	).Scan(&exam.ID, &exam.CreatedAt)
	if err != nil {
		return nil, err
	}
	return exam, nil
}

// GetByID returns the exam, or nil when it does not exist.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	var exam model.Exam
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, created_by, created_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&exam.ID, &exam.Title, &exam.DurationMinutes, &exam.CreatedBy, &exam.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

// List returns a page of exams, newest first, with the total count.
func (r *ExamRepository) List(ctx context.Context, limit, offset int) ([]model.Exam, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, title, duration_minutes, created_by, created_at
		 FROM exams
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var exam model.Exam
		if err := rows.Scan(&exam.ID, &exam.Title, &exam.DurationMinutes, &exam.CreatedBy, &exam.CreatedAt); err != nil {
			return nil, 0, err
		}
		exams = append(exams, exam)
	}
	return exams, total, rows.Err()
}

// ListResults returns all scored results for an exam with student identity,
// best score first.
func (r *ExamRepository) ListResults(ctx context.Context, examID uuid.UUID) ([]model.ExamResultRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT res.session_id, res.student_id, s.name, s.email,
		        res.score, res.total, res.percentage, res.started_at, res.completed_at
		 FROM results res
		 JOIN students s ON s.id = res.student_id
		 WHERE res.exam_id = $1
		 ORDER BY res.score DESC, res.completed_at ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ExamResultRow
	for rows.Next() {
		var row model.ExamResultRow
		if err := rows.Scan(&row.SessionID, &row.StudentID, &row.StudentName, &row.StudentEmail,
			&row.Score, &row.Total, &row.Percentage, &row.StartedAt, &row.CompletedAt); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
