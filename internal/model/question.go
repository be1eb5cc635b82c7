package model

import (
	"time"

	"github.com/google/uuid"
)

// Question represents a multiple-choice question in the question pool.
// Options C, D and E are optional; A and B are always present.
type Question struct {
	ID            uuid.UUID `json:"id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       *string   `json:"option_c,omitempty"`
	OptionD       *string   `json:"option_d,omitempty"`
	OptionE       *string   `json:"option_e,omitempty"`
	CorrectOption string    `json:"correct_option,omitempty"`
	Subject       string    `json:"subject"`
	Difficulty    int       `json:"difficulty"`
	ImagePath     *string   `json:"image_path,omitempty"`
	CreatedBy     int       `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuestionForStudent is an assigned question without the correct answer.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	OptionA      string    `json:"option_a"`
	OptionB      string    `json:"option_b"`
	OptionC      *string   `json:"option_c,omitempty"`
	OptionD      *string   `json:"option_d,omitempty"`
	OptionE      *string   `json:"option_e,omitempty"`
	Order        int       `json:"question_order"`
}

// CreateQuestionRequest is the payload for adding a question to the pool.
type CreateQuestionRequest struct {
	QuestionText  string  `json:"question_text" binding:"required,min=1,max=2000"`
	OptionA       string  `json:"option_a" binding:"required,max=1000"`
	OptionB       string  `json:"option_b" binding:"required,max=1000"`
	OptionC       *string `json:"option_c" binding:"omitempty,max=1000"`
	OptionD       *string `json:"option_d" binding:"omitempty,max=1000"`
	OptionE       *string `json:"option_e" binding:"omitempty,max=1000"`
	CorrectOption string  `json:"correct_option" binding:"required,oneof=A B C D E"`
	Subject       string  `json:"subject" binding:"required,min=1,max=100"`
	Difficulty    int     `json:"difficulty" binding:"required,min=1,max=5"`
	ImagePath     *string `json:"image_path" binding:"omitempty,max=500"`
}
