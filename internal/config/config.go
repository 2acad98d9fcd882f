package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Backends de sesión soportados.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	// DATABASE_URL es opcional: sin base, los teasers de vacantes
	// devuelven vacío.
	DatabaseURL string `env:"DATABASE_URL"`

	// LLM_API_KEY es opcional: sin clave, el intérprete se deshabilita y
	// todo resultado sale con warning de explicación no disponible.
	LLMAPIKey         string  `env:"LLM_API_KEY"`
	LLMBaseURL        string  `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string  `env:"LLM_MODEL" envDefault:"gpt-5.1"`
	LLMScoreThreshold float64 `env:"LLM_SCORE_THRESHOLD" envDefault:"0.1"`

	SessionBackend     string        `env:"SESSION_BACKEND" envDefault:"memory"`
	MaxActiveSessions  int           `env:"INTERVIEW_MAX_ACTIVE" envDefault:"100"`
	SessionTTLMinutes  int           `env:"SESSION_TTL_MINUTES" envDefault:"30"`
	SessionSweepPeriod time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"0"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret           string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
	AdminUsername       string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash   string `env:"ADMIN_PASSWORD_HASH"`

	StartRateLimit  int `env:"START_RATE_LIMIT" envDefault:"10"`
	AnswerRateLimit int `env:"ANSWER_RATE_LIMIT" envDefault:"60"`
	LoginRateLimit  int `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.SessionBackend != BackendMemory && cfg.SessionBackend != BackendRedis {
		return nil, fmt.Errorf("invalid SESSION_BACKEND %q", cfg.SessionBackend)
	}
	if cfg.SessionBackend == BackendRedis && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("SESSION_BACKEND=redis requires REDIS_ADDR")
	}
	return &cfg, nil
}

// SessionTTL devuelve el TTL de sesión como duración.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
