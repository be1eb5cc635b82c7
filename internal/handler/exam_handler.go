package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ereas/ereas-backend/internal/middleware"
	"github.com/ereas/ereas-backend/internal/model"
	"github.com/ereas/ereas-backend/internal/response"
	"github.com/ereas/ereas-backend/internal/service"
	"github.com/ereas/ereas-backend/internal/validator"
)

// ExamHandler handles admin exam management endpoints.
type ExamHandler struct {
	examService      *service.ExamService
	assemblerService *service.AssemblerService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, assemblerService *service.AssemblerService) *ExamHandler {
	return &ExamHandler{
		examService:      examService,
		assemblerService: assemblerService,
	}
}

// CreateExam godoc
// POST /api/v1/admin/exams
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/admin/exams/:examId
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// ListExams godoc
// GET /api/v1/admin/exams
func (h *ExamHandler) ListExams(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	exams, total, err := h.examService.List(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	})
}

// AssignQuestions godoc
// POST /api/v1/admin/exams/:examId/questions
// Draws questions per the blueprint and binds them to the exam, once.
func (h *ExamHandler) AssignQuestions(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AssignQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assigned, err := h.assemblerService.Assign(c.Request.Context(), examID, req.Blueprint)
	if err != nil {
		var insufficient *service.InsufficientQuestionsError
		switch {
		case errors.Is(err, service.ErrInvalidBlueprint):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidBlueprint)
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		case errors.Is(err, service.ErrAlreadyAssigned):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyAssigned)
		case errors.As(err, &insufficient):
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrInsufficientQuestions,
				map[string]string{"subject": insufficient.Subject})
		default:
			response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"exam_id":        examID,
		"question_count": len(assigned),
	})
}

// GetExamResults godoc
// GET /api/v1/admin/exams/:examId/results
func (h *ExamHandler) GetExamResults(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	results, err := h.examService.Results(c.Request.Context(), examID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}
