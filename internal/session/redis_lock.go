package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Liberación compare-and-delete: solo borra el lock si todavía sostiene
// nuestro token, así un lease vencido no pisa el lock de otro proceso.
const redisUnlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const lockRetryInterval = 25 * time.Millisecond

// withLock ejecuta fn bajo un lock arrendado con espera acotada. Si el
// lock no se consigue dentro de lockWait, falla con ErrBackendUnavailable
// en vez de encolar al caller indefinidamente.
func (s *RedisStore) withLock(ctx context.Context, lockKey string, fn func() error) error {
	token := uuid.NewString()
	started := time.Now()
	deadline := started.Add(s.lockWait)

	for {
		ok, err := s.client.SetNX(ctx, lockKey, token, s.lockTTL).Result()
		if err != nil {
			return fmt.Errorf("%w: acquire lock %s: %v", ErrBackendUnavailable, lockKey, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: lock %s not acquired within %s", ErrBackendUnavailable, lockKey, s.lockWait)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: acquire lock %s: %v", ErrBackendUnavailable, lockKey, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}

	s.logger.Debug("redis lock acquired",
		zap.String("lock_key", lockKey),
		zap.Duration("wait", time.Since(started)),
	)

	fnErr := fn()

	// Liberamos con un contexto propio: la cancelación del caller no debe
	// dejar el lock tomado hasta que venza el lease.
	releaseCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := s.client.Eval(releaseCtx, redisUnlockScript, []string{lockKey}, token).Err(); err != nil {
		s.logger.Warn("failed to release redis lock", zap.String("lock_key", lockKey), zap.Error(err))
	}

	return fnErr
}
