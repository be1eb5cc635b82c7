package repository

import (
	"context"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssignmentRepository handles the exam question assignment: the one-time
// randomized draw and the read side the session engine consumes.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// HasAssignment reports whether the exam already has assigned questions.
func (r *AssignmentRepository) HasAssignment(ctx context.Context, examID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exam_questions WHERE exam_id = $1)`, examID,
	).Scan(&exists)
	return exists, err
}

// PickRandomQuestions draws up to limit distinct question ids uniformly at
// random from the pool matching subject (and difficulty when non-nil).
func (r *AssignmentRepository) PickRandomQuestions(ctx context.Context, subject string, difficulty *int, limit int) ([]uuid.UUID, error) {
	query := `SELECT id FROM questions WHERE subject = $1 ORDER BY RANDOM() LIMIT $2`
	args := []any{subject, limit}
	if difficulty != nil {
		query = `SELECT id FROM questions WHERE subject = $1 AND difficulty = $2 ORDER BY RANDOM() LIMIT $3`
		args = []any{subject, *difficulty, limit}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateAssignment persists the full assignment in a single statement, so the
// write is all-or-nothing. Returns false without writing when another caller
// already assigned this exam (unique order index breaks the tie).
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, examID uuid.UUID, assignments []model.AssignedQuestion) (bool, error) {
	questionIDs := make([]uuid.UUID, len(assignments))
	orders := make([]int, len(assignments))
	for i, a := range assignments {
		questionIDs[i] = a.QuestionID
		orders[i] = a.Order
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_questions (exam_id, question_id, question_order)
		 SELECT $1, u.question_id, u.question_order
		 FROM UNNEST($2::uuid[], $3::int[]) AS u (question_id, question_order)`,
		examID, questionIDs, orders)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetAssignedQuestionCount returns how many questions the exam carries.
func (r *AssignmentRepository) GetAssignedQuestionCount(ctx context.Context, examID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_questions WHERE exam_id = $1`, examID,
	).Scan(&count)
	return count, err
}

// GetAssignedQuestions returns the ordered paper with correct answers
// withheld.
func (r *AssignmentRepository) GetAssignedQuestions(ctx context.Context, examID uuid.UUID) ([]model.QuestionForStudent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.question_text, q.option_a, q.option_b, q.option_c, q.option_d, q.option_e, eq.question_order
		 FROM exam_questions eq
		 JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = $1
		 ORDER BY eq.question_order`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.QuestionForStudent
	for rows.Next() {
		var q model.QuestionForStudent
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.OptionE, &q.Order); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetCorrectOptions maps the given question ids to their correct option.
func (r *AssignmentRepository) GetCorrectOptions(ctx context.Context, questionIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(questionIDs) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, correct_option FROM questions WHERE id = ANY($1)`, questionIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := make(map[uuid.UUID]string, len(questionIDs))
	for rows.Next() {
		var id uuid.UUID
		var correct string
		if err := rows.Scan(&id, &correct); err != nil {
			return nil, err
		}
		options[id] = correct
	}
	return options, rows.Err()
}
