package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"career-engine/internal/catalog"
	"career-engine/internal/config"
	"career-engine/internal/db"
	apihttp "career-engine/internal/http"
	"career-engine/internal/llm"
	"career-engine/internal/repository"
	"career-engine/internal/service"
	"career-engine/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	questions, err := catalog.NewQuestionCatalog(logger)
	if err != nil {
		logger.Fatal("load question catalog", zap.Error(err))
	}
	roles, err := catalog.NewRoleCatalog(logger)
	if err != nil {
		logger.Fatal("load role catalog", zap.Error(err))
	}
	stages, err := catalog.NewStageCatalog(logger)
	if err != nil {
		logger.Fatal("load stage catalog", zap.Error(err))
	}
	signals, err := catalog.NewSignalDictionary(logger)
	if err != nil {
		logger.Fatal("load signal dictionary", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	var store session.Store
	var memStore *session.MemoryStore
	switch cfg.SessionBackend {
	case config.BackendRedis:
		// Redis configurado es Redis obligatorio: mejor no arrancar que
		// degradar en silencio a memoria.
		redisStore, err := session.NewRedisStore(ctx, redisClient, questions, cfg.MaxActiveSessions, cfg.SessionTTL(), logger)
		if err != nil {
			logger.Fatal("redis session backend", zap.Error(err))
		}
		store = redisStore
	default:
		memStore = session.NewMemoryStore(questions, cfg.MaxActiveSessions, cfg.SessionTTL(), cfg.SessionSweepPeriod, logger)
		defer memStore.Close()
		store = memStore
	}

	var interpreter *service.Interpreter
	if cfg.LLMAPIKey != "" {
		llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
		interpreter = service.NewInterpreter(llmClient, cfg.LLMScoreThreshold, service.DefaultRetryConfig(), logger)
	} else {
		logger.Warn("llm api key not configured, interpretation disabled")
	}

	interviewSvc := service.NewInterviewService(store, service.Catalogs{
		Questions: questions,
		Roles:     roles,
		Stages:    stages,
		Signals:   signals,
	}, interpreter, logger)

	var vacancyRepo repository.VacancyRepository
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		vacancyRepo = repository.NewPgVacancyRepository(pool)
	} else {
		logger.Warn("database not configured, vacancy teasers disabled")
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	var startLimiter, answerLimiter, loginLimiter service.RateLimiter
	if redisClient != nil {
		startLimiter = service.NewRedisRateLimiter(redisClient, time.Minute, cfg.StartRateLimit, "interview:rl:start:")
		answerLimiter = service.NewRedisRateLimiter(redisClient, time.Minute, cfg.AnswerRateLimit, "interview:rl:answer:")
		loginLimiter = service.NewRedisRateLimiter(redisClient, 10*time.Minute, cfg.LoginRateLimit, "interview:rl:login:")
	} else {
		startLimiter = service.NewMemoryRateLimiter(time.Minute, cfg.StartRateLimit)
		answerLimiter = service.NewMemoryRateLimiter(time.Minute, cfg.AnswerRateLimit)
		loginLimiter = service.NewMemoryRateLimiter(10*time.Minute, cfg.LoginRateLimit)
	}

	interviewHandler := apihttp.NewInterviewHandler(interviewSvc, logger)
	stageHandler := apihttp.NewStageHandler(stages, vacancyRepo, logger)
	adminHandler := apihttp.NewAdminHandler(store, questions, jwtSvc, cfg.AdminUsername, cfg.AdminPasswordHash, logger)

	ready := func(ctx context.Context) error {
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return err
			}
		}
		if pool != nil {
			return db.Ping(ctx, pool)
		}
		return nil
	}

	router := apihttp.NewRouter(logger, interviewHandler, stageHandler, adminHandler, jwtSvc, startLimiter, answerLimiter, loginLimiter, ready)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("session_backend", cfg.SessionBackend),
		zap.String("catalog_version", questions.Version()),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
