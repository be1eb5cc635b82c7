package model

import (
	"github.com/google/uuid"
)

// BlueprintBlock specifies how many questions of which subject (and optional
// difficulty) to draw when assembling an exam. Blocks are consumed in order.
type BlueprintBlock struct {
	Subject    string `json:"subject" binding:"required,min=1,max=100"`
	Difficulty *int   `json:"difficulty" binding:"omitempty,min=1,max=5"`
	Count      int    `json:"count" binding:"required,min=1"`
}

// AssignQuestionsRequest is the payload for assigning a randomized question
// set to an exam from a blueprint.
type AssignQuestionsRequest struct {
	Blueprint []BlueprintBlock `json:"blueprint" binding:"required,min=1,dive"`
}

// AssignedQuestion is one (question, order) row of an exam's assignment.
// Order is a dense 1-based sequence across the whole exam.
type AssignedQuestion struct {
	QuestionID uuid.UUID `json:"question_id"`
	Order      int       `json:"question_order"`
}
