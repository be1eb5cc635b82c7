package repository

import (
	"context"
	"errors"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository handles student account persistence.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Create inserts a new student. Returns ErrDuplicate when the email or
// permanent index is already taken.
func (r *StudentRepository) Create(ctx context.Context, permanentIndex, name, email, passwordHash string) (*model.Student, error) {
	student := &model.Student{
		PermanentIndex: permanentIndex,
		Name:           name,
		Email:          email,
		PasswordHash:   passwordHash,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (permanent_index, name, email, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		permanentIndex, name, email, passwordHash,
	).Scan(&student.ID, &student.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return student, nil
}

// GetByEmail returns the student with the given email, or nil when absent.
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	var student model.Student
	err := r.pool.QueryRow(ctx,
		`SELECT id, permanent_index, name, email, password_hash, created_at
		 FROM students WHERE email = $1`, email,
	).Scan(&student.ID, &student.PermanentIndex, &student.Name, &student.Email,
		&student.PasswordHash, &student.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}
