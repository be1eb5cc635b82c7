package model

import "time"

// Student represents a registered student.
type Student struct {
	ID             int       `json:"id"`
	PermanentIndex string    `json:"permanent_index"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// RegisterStudentRequest is the payload for student registration.
type RegisterStudentRequest struct {
	PermanentIndex string `json:"permanent_index" binding:"required,min=1,max=50"`
	Name           string `json:"name" binding:"required,min=1,max=255"`
	Email          string `json:"email" binding:"required,email,max=255"`
	Password       string `json:"password" binding:"required,min=8,max=72"`
}

// StudentLoginRequest is the payload for student login.
type StudentLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
