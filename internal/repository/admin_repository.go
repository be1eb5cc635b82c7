package repository

import (
	"context"
	"errors"

	"github.com/ereas/ereas-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminRepository handles administrator account persistence.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// Create inserts a new admin. Returns ErrDuplicate when the email is taken.
func (r *AdminRepository) Create(ctx context.Context, name, email, passwordHash string) (*model.Admin, error) {
	admin := &model.Admin{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admins (name, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		name, email, passwordHash,
	).Scan(&admin.ID, &admin.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return admin, nil
}

// GetByEmail returns the admin with the given email, or nil when absent.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at
		 FROM admins WHERE email = $1`, email,
	).Scan(&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash, &admin.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
