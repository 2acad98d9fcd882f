package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter limita cuántas veces se permite una acción por clave dentro
// de una ventana. Allow es fail-open ante errores del backend: preferimos
// dejar pasar un request de más a rechazar tráfico legítimo porque Redis
// parpadeó.
type RateLimiter interface {
	Allow(key string) bool
}

// INCR + EXPIRE atómicos: la clave siempre queda con TTL aunque dos
// clientes incrementen a la vez.
const redisAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

// NewRedisRateLimiter crea un limitador con ventana fija respaldado en
// Redis, compartido entre réplicas del servicio.
func NewRedisRateLimiter(client *redis.Client, window time.Duration, max int, prefix string) RateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	if prefix == "" {
		prefix = "interview:rl:"
	}
	return &redisRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: prefix,
	}
}

func (l *redisRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisAllowScript, []string{l.prefix + normalizedKey}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}

// memoryRateLimiter es el equivalente de un solo proceso, para despliegues
// sin Redis. Misma semántica de ventana fija.
type memoryRateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	buckets map[string]*memoryBucket
}

type memoryBucket struct {
	count   int
	resetAt time.Time
}

// NewMemoryRateLimiter crea un limitador en memoria con ventana fija.
func NewMemoryRateLimiter(window time.Duration, max int) RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &memoryRateLimiter{
		window:  window,
		max:     max,
		buckets: make(map[string]*memoryBucket),
	}
}

func (l *memoryRateLimiter) Allow(key string) bool {
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	bucket, ok := l.buckets[normalizedKey]
	if !ok || now.After(bucket.resetAt) {
		l.buckets[normalizedKey] = &memoryBucket{count: 1, resetAt: now.Add(l.window)}
		l.evictStaleLocked(now)
		return true
	}
	bucket.count++
	return bucket.count <= l.max
}

// evictStaleLocked poda buckets vencidos para que el mapa no crezca sin
// límite. Requiere l.mu tomado.
func (l *memoryRateLimiter) evictStaleLocked(now time.Time) {
	if len(l.buckets) < 1024 {
		return
	}
	for k, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, k)
		}
	}
}
