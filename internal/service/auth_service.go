package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ereas/ereas-backend/internal/config"
	"github.com/ereas/ereas-backend/internal/model"
	"github.com/ereas/ereas-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginAlreadyActive = errors.New("another login is already active for this account")
	ErrLoginInvalidated   = errors.New("login invalidated")
	ErrAccountExists      = errors.New("account already exists")
)

// TokenType distinguishes student vs admin tokens.
type TokenType string

const (
	TokenTypeStudent TokenType = "student"
	TokenTypeAdmin   TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    int       `json:"user_id"`
}

// AuthService handles accounts, JWT issuance, and the single-device login
// policy for students.
type AuthService struct {
	cfg      *config.Config
	rdb      *redis.Client
	students *repository.StudentRepository
	admins   *repository.AdminRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, students *repository.StudentRepository, admins *repository.AdminRepository) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, students: students, admins: admins}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// RegisterStudent creates a student account. Returns ErrAccountExists when the
// email or permanent index is already registered.
func (s *AuthService) RegisterStudent(ctx context.Context, req *model.RegisterStudentRequest) (*model.Student, error) {
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	student, err := s.students.Create(ctx, req.PermanentIndex, req.Name, req.Email, hash)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrAccountExists
	}
	if err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

// StudentLogin verifies credentials and issues a JWT, registering the login
// in Redis. A second login while one is active is rejected so each student
// holds at most one device at a time.
func (s *AuthService) StudentLogin(ctx context.Context, email, password string) (string, *model.Student, error) {
	student, err := s.students.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("find student: %w", err)
	}
	if student == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := s.CheckPassword(student.PasswordHash, password); err != nil {
		return "", nil, err
	}

	loginKey := config.CacheKey.StudentLoginKey(student.ID)
	existing, err := s.rdb.Get(ctx, loginKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", nil, fmt.Errorf("check login: %w", err)
	}
	if existing != "" {
		return "", nil, ErrLoginAlreadyActive
	}

	jti := uuid.New().String()
	token, err := s.signToken(TokenTypeStudent, student.ID, jti)
	if err != nil {
		return "", nil, err
	}

	if err := s.rdb.Set(ctx, loginKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", nil, fmt.Errorf("store login: %w", err)
	}
	return token, student, nil
}

// AdminLogin verifies credentials and issues an admin JWT. Admins are not
// bound to a single device.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (string, *model.Admin, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("find admin: %w", err)
	}
	if admin == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := s.CheckPassword(admin.PasswordHash, password); err != nil {
		return "", nil, err
	}

	token, err := s.signToken(TokenTypeAdmin, admin.ID, uuid.New().String())
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

func (s *AuthService) signToken(tokenType TokenType, userID int, jti string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: tokenType,
		UserID:    userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateStudentLogin checks that the token's JTI is still the active login
// in Redis. A mismatch means the login was reset or superseded.
func (s *AuthService) ValidateStudentLogin(ctx context.Context, studentID int, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.StudentLoginKey(studentID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrLoginInvalidated
		}
		return fmt.Errorf("check login: %w", err)
	}
	if stored != jti {
		return ErrLoginInvalidated
	}
	return nil
}

// Logout drops a student's active login, allowing a fresh login.
func (s *AuthService) Logout(ctx context.Context, studentID int) error {
	return s.rdb.Del(ctx, config.CacheKey.StudentLoginKey(studentID)).Err()
}
