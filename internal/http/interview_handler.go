package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"career-engine/internal/catalog"
	"career-engine/internal/domain"
	"career-engine/internal/scoring"
	"career-engine/internal/service"
	"career-engine/internal/session"
)

// InterviewHandler expone el flujo del test: preguntas, sesión, respuestas
// y cierre con resultado.
type InterviewHandler struct {
	svc    *service.InterviewService
	logger *zap.Logger
}

func NewInterviewHandler(svc *service.InterviewService, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{svc: svc, logger: logger}
}

// answerOptionView y questionView son la proyección pública del banco.
// Los pesos por rol/etapa y las señales son semántica interna del motor y
// nunca salen al cliente.
type answerOptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionView struct {
	ID            string             `json:"id"`
	Text          string             `json:"text"`
	ThematicBlock string             `json:"thematic_block"`
	Type          string             `json:"type,omitempty"`
	AnswerOptions []answerOptionView `json:"answer_options"`
}

func toQuestionViews(questions []domain.Question) []questionView {
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		options := make([]answerOptionView, 0, len(q.AnswerOptions))
		for _, opt := range q.AnswerOptions {
			options = append(options, answerOptionView{ID: opt.ID, Text: opt.Text})
		}
		views = append(views, questionView{
			ID:            q.ID,
			Text:          q.Text,
			ThematicBlock: q.ThematicBlock,
			Type:          q.Type,
			AnswerOptions: options,
		})
	}
	return views
}

// GetQuestions maneja GET /api/interview/questions.
func (h *InterviewHandler) GetQuestions(c *gin.Context) {
	views := toQuestionViews(h.svc.Questions())
	c.JSON(http.StatusOK, gin.H{
		"questions": views,
		"total":     len(views),
	})
}

// StartSession maneja POST /api/interview/start.
func (h *InterviewHandler) StartSession(c *gin.Context) {
	sess, err := h.svc.Start(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "start session failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id":      sess.SessionID,
		"status":          sess.Status,
		"catalog_version": sess.LockedCatalogVersion,
		"expires_at":      sess.ExpiresAt,
	})
}

// SubmitAnswer maneja POST /api/interview/answer/:session_id.
func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	var req struct {
		QuestionID     string `json:"question_id" binding:"required"`
		AnswerOptionID string `json:"answer_option_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid submit answer request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sessionID := c.Param("session_id")
	resp, err := h.svc.Submit(c.Request.Context(), sessionID, req.QuestionID, req.AnswerOptionID)
	if err != nil {
		h.respondError(c, err, "submit answer failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":  sessionID,
		"question_id": resp.QuestionID,
		"recorded_at": resp.Timestamp,
	})
}

// CompleteSession maneja POST /api/interview/complete/:session_id.
// ?skip_explanation=true cierra la sesión sin llamar al LLM.
func (h *InterviewHandler) CompleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	skip, _ := strconv.ParseBool(c.Query("skip_explanation"))
	result, err := h.svc.Complete(c.Request.Context(), sessionID, skip)
	if err != nil {
		h.respondError(c, err, "complete session failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSession maneja GET /api/interview/session/:session_id.
func (h *InterviewHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	sess, err := h.svc.Session(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, err, "get session failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":      sess.SessionID,
		"status":          sess.Status,
		"answered":        len(sess.Responses),
		"catalog_version": sess.LockedCatalogVersion,
		"expires_at":      sess.ExpiresAt,
	})
}

// respondError mapea la taxonomía de errores del motor a status codes.
func (h *InterviewHandler) respondError(c *gin.Context, err error, logMsg string) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	h.logger.Warn(logMsg, zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionComplete):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrCatalogLocked):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scoring.ErrIncompleteSession):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrSessionLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
