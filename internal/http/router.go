package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"career-engine/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	interviewH *InterviewHandler,
	stageH *StageHandler,
	adminH *AdminHandler,
	jwtSvc *service.JWTService,
	startLimiter service.RateLimiter,
	answerLimiter service.RateLimiter,
	loginLimiter service.RateLimiter,
	ready func(ctx context.Context) error,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	interview := r.Group("/api/interview")
	interview.GET("/questions", interviewH.GetQuestions)
	interview.POST("/start", rateLimitMiddleware(startLimiter, clientIPKey), interviewH.StartSession)
	interview.POST("/answer/:session_id", rateLimitMiddleware(answerLimiter, clientIPKey), interviewH.SubmitAnswer)
	interview.POST("/complete/:session_id", rateLimitMiddleware(answerLimiter, clientIPKey), interviewH.CompleteSession)
	interview.GET("/session/:session_id", interviewH.GetSession)

	stages := r.Group("/api/stages")
	stages.GET("", stageH.ListStages)
	stages.GET("/:id", stageH.GetStage)
	stages.GET("/:id/vacancies", stageH.GetStageVacancies)

	admin := r.Group("/api/admin")
	admin.POST("/login", rateLimitMiddleware(loginLimiter, clientIPKey), adminH.Login)

	adminAuth := admin.Group("", JWTAuthMiddleware(jwtSvc))
	adminAuth.GET("/sessions", adminH.ListSessions)
	adminAuth.DELETE("/sessions/:session_id", adminH.DeleteSession)
	adminAuth.POST("/reload", adminH.ReloadCatalog)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

func clientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// rateLimitMiddleware rechaza con 429 cuando la clave agotó su cupo en la
// ventana. Con limiter nil no limita nada.
func rateLimitMiddleware(limiter service.RateLimiter, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(keyFn(c)) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
