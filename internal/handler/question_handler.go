package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ereas/ereas-backend/internal/middleware"
	"github.com/ereas/ereas-backend/internal/model"
	"github.com/ereas/ereas-backend/internal/response"
	"github.com/ereas/ereas-backend/internal/service"
	"github.com/ereas/ereas-backend/internal/validator"
)

// QuestionHandler handles the admin-side question pool endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// CreateQuestion godoc
// POST /api/v1/admin/questions
// Adds a question to the pool; near-duplicates within a subject are rejected.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), &req, claims.UserID)
	if err != nil {
		var dup *service.ErrDuplicateQuestion
		if errors.As(err, &dup) {
			response.FailWithFields(c, http.StatusConflict, response.ErrDuplicateQuestion, map[string]string{
				"existing_id": dup.ExistingID.String(),
				"similarity":  strconv.FormatFloat(dup.Similarity, 'f', 2, 64),
			})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ListQuestions godoc
// GET /api/v1/admin/questions?subject=&difficulty=&page=&per_page=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	subject := c.Query("subject")

	var difficulty *int
	if raw := c.Query("difficulty"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 1 || d > 5 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		difficulty = &d
	}

	questions, total, err := h.questionService.List(c.Request.Context(), subject, difficulty, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	})
}
