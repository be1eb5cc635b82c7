package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ereas/ereas-backend/internal/middleware"
	"github.com/ereas/ereas-backend/internal/model"
	"github.com/ereas/ereas-backend/internal/response"
	"github.com/ereas/ereas-backend/internal/service"
	"github.com/ereas/ereas-backend/internal/validator"
)

// StudentExamHandler handles the student-facing session lifecycle endpoints.
type StudentExamHandler struct {
	sessionService *service.SessionService
}

// NewStudentExamHandler creates a new StudentExamHandler.
func NewStudentExamHandler(sessionService *service.SessionService) *StudentExamHandler {
	return &StudentExamHandler{sessionService: sessionService}
}

// StartExam godoc
// POST /api/v1/student/exams/:examId/start
// Starts (or resumes) the exam session. Repeated calls while the session is
// live return the same session and paper.
func (h *StudentExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.Start(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		case errors.Is(err, service.ErrNotAssigned):
			response.Fail(c, http.StatusConflict, response.ErrNotAssigned)
		default:
			response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

// SaveAnswer godoc
// PUT /api/v1/student/sessions/:sessionId/answers
// Autosaves a selection. Last write wins per question; expired or completed
// sessions reject the write.
func (h *StudentExamHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err = h.sessionService.SaveAnswer(c.Request.Context(), sessionID, claims.UserID, req.QuestionID, req.SelectedOption)
	if err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			response.Fail(c, http.StatusConflict, response.ErrSessionInvalid)
			return
		}
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// SubmitExam godoc
// POST /api/v1/student/sessions/:sessionId/submit
// Finalizes the session and scores it exactly once.
func (h *StudentExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.sessionService.Submit(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			response.Fail(c, http.StatusConflict, response.ErrSessionInvalid)
			return
		}
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// GetSessionState godoc
// GET /api/v1/student/sessions/:sessionId/state
// Returns autosaved answers and remaining time so a refreshed client can
// restore its paper.
func (h *StudentExamHandler) GetSessionState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			response.Fail(c, http.StatusConflict, response.ErrSessionInvalid)
			return
		}
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
		return
	}

	response.Success(c, http.StatusOK, state)
}
