package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"career-engine/internal/catalog"
	"career-engine/internal/service"
	"career-engine/internal/session"
)

// AdminHandler expone el panel de operación: login, inspección de sesiones
// y recarga del banco de preguntas.
type AdminHandler struct {
	store        session.Store
	questions    *catalog.QuestionCatalog
	jwtSvc       *service.JWTService
	username     string
	passwordHash []byte
	logger       *zap.Logger
}

func NewAdminHandler(
	store session.Store,
	questions *catalog.QuestionCatalog,
	jwtSvc *service.JWTService,
	username, passwordHash string,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		store:        store,
		questions:    questions,
		jwtSvc:       jwtSvc,
		username:     username,
		passwordHash: []byte(passwordHash),
		logger:       logger,
	}
}

// Login maneja POST /api/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)) == nil
	if !userOK || !passOK {
		h.logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, expiresIn, err := h.jwtSvc.GenerateAccessToken(h.username)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
	})
}

// ListSessions maneja GET /api/admin/sessions.
func (h *AdminHandler) ListSessions(c *gin.Context) {
	sessions, err := h.store.ListSessions(c.Request.Context())
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		c.JSON(statusForError(err), gin.H{"error": "could not list sessions"})
		return
	}

	type sessionView struct {
		SessionID      string `json:"session_id"`
		Status         string `json:"status"`
		Answered       int    `json:"answered"`
		CatalogVersion string `json:"catalog_version"`
		CreatedAt      string `json:"created_at"`
		ExpiresAt      string `json:"expires_at"`
	}
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			SessionID:      s.SessionID,
			Status:         string(s.Status),
			Answered:       len(s.Responses),
			CatalogVersion: s.LockedCatalogVersion,
			CreatedAt:      s.CreatedAt.Format(time.RFC3339),
			ExpiresAt:      s.ExpiresAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views, "total": len(views)})
}

// DeleteSession maneja DELETE /api/admin/sessions/:session_id.
func (h *AdminHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.store.DeleteSession(c.Request.Context(), sessionID); err != nil {
		h.logger.Warn("delete session failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": sessionID})
}

// ReloadCatalog maneja POST /api/admin/reload. La recarga se rechaza con
// 409 mientras haya sesiones en vuelo sosteniendo el lock del banco.
func (h *AdminHandler) ReloadCatalog(c *gin.Context) {
	var req struct {
		Path string `json:"path"`
	}
	// Body opcional: sin path se recarga el banco embebido.
	_ = c.ShouldBindJSON(&req)

	if err := h.questions.Reload(req.Path); err != nil {
		h.logger.Warn("catalog reload rejected", zap.Error(err))
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("question catalog reloaded",
		zap.String("version", h.questions.Version()),
		zap.Int("questions", h.questions.QuestionCount()),
	)
	c.JSON(http.StatusOK, gin.H{
		"version":   h.questions.Version(),
		"questions": h.questions.QuestionCount(),
	})
}
