package repository

import (
	"context"
	"errors"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles the question pool.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a new question and returns it with generated fields.
func (r *QuestionRepository) Create(ctx context.Context, req *model.CreateQuestionRequest, createdBy int) (*model.Question, error) {
	question := &model.Question{
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		OptionE:       req.OptionE,
		CorrectOption: req.CorrectOption,
		Subject:       req.Subject,
		Difficulty:    req.Difficulty,
		ImagePath:     req.ImagePath,
		CreatedBy:     createdBy,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO questions (question_text, option_a, option_b, option_c, option_d, option_e,
		                        correct_option, subject, difficulty, image_path, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		req.QuestionText, req.OptionA, req.OptionB, req.OptionC, req.OptionD, req.OptionE,
		req.CorrectOption, req.Subject, req.Difficulty, req.ImagePath, createdBy,
	).Scan(&question.ID, &question.CreatedAt)
	if err != nil {
		return nil, err
	}
	return question, nil
}

// FindMostSimilar returns the pool question whose text is most similar to the
// candidate within the same subject, together with the trigram similarity
// score. Returns nil when the pool has no question above the threshold.
func (r *QuestionRepository) FindMostSimilar(ctx context.Context, subject, questionText string, threshold float64) (*model.Question, float64, error) {
	var question model.Question
	var score float64
	err := r.pool.QueryRow(ctx,
		`SELECT id, question_text, subject, difficulty, created_by, created_at,
		        similarity(question_text, $2) AS score
		 FROM questions
		 WHERE subject = $1 AND similarity(question_text, $2) >= $3
		 ORDER BY score DESC
		 LIMIT 1`,
		subject, questionText, threshold,
	).Scan(&question.ID, &question.QuestionText, &question.Subject,
		&question.Difficulty, &question.CreatedBy, &question.CreatedAt, &score)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return &question, score, nil
}

// List returns a filtered page of questions with the total count. Subject and
// difficulty filters are optional.
func (r *QuestionRepository) List(ctx context.Context, subject string, difficulty *int, limit, offset int) ([]model.Question, int, error) {
	where := ` WHERE ($1 = '' OR subject = $1) AND ($2::int IS NULL OR difficulty = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`+where, subject, difficulty).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, question_text, option_a, option_b, option_c, option_d, option_e,
		        correct_option, subject, difficulty, image_path, created_by, created_at
		 FROM questions`+where+`
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		subject, difficulty, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.OptionE,
			&q.CorrectOption, &q.Subject, &q.Difficulty, &q.ImagePath, &q.CreatedBy, &q.CreatedAt); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}
