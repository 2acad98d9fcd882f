package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"career-engine/internal/domain"
)

const (
	sessionKeyPrefix  = "interview:v2:session:"
	sessionLockPrefix = "interview:v2:lock:session:"
	activeSessionsKey = "interview:v2:sessions:active"
	createLockKey     = "interview:v2:sessions:create_lock"
)

// RedisStore serializa cada sesión como documento JSON con TTL nativo y
// coordina procesos con locks arrendados: uno por sesión y uno global que
// hace atómico el chequeo de cupo contra el insert de la creación.
type RedisStore struct {
	client    *redis.Client
	questions QuestionSource
	maxActive int
	ttl       time.Duration
	lockTTL   time.Duration
	lockWait  time.Duration
	logger    *zap.Logger
}

// NewRedisStore verifica conectividad y construye el backend compartido.
func NewRedisStore(ctx context.Context, client *redis.Client, questions QuestionSource, maxActive int, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping: %v", ErrBackendUnavailable, err)
	}
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return &RedisStore{
		client:    client,
		questions: questions,
		maxActive: maxActive,
		ttl:       ttl,
		lockTTL:   10 * time.Second,
		lockWait:  3 * time.Second,
		logger:    logger,
	}, nil
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func sessionLockKey(sessionID string) string {
	return sessionLockPrefix + sessionID
}

func (s *RedisStore) saveSession(ctx context.Context, sess *domain.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.SessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: save session: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *RedisStore) loadSession(ctx context.Context, sessionID string) (domain.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: load session: %v", ErrBackendUnavailable, err)
	}
	var sess domain.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("%w: corrupt session document: %v", ErrBackendUnavailable, err)
	}
	return sess, nil
}

// pruneActiveIndex saca del índice las sesiones cuyo documento ya expiró
// por TTL. Corre antes de cada decisión de cupo: el índice puede quedar
// desactualizado sin ningún delete explícito.
func (s *RedisStore) pruneActiveIndex(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, activeSessionsKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("%w: read active index: %v", ErrBackendUnavailable, err)
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: check active index: %v", ErrBackendUnavailable, err)
	}

	var stale []interface{}
	for i, cmd := range checks {
		if cmd.Val() == 0 {
			stale = append(stale, ids[i])
			if s.questions != nil {
				s.questions.Unlock(ids[i])
			}
		}
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, activeSessionsKey, stale...).Err(); err != nil {
			return fmt.Errorf("%w: prune active index: %v", ErrBackendUnavailable, err)
		}
		s.logger.Debug("pruned stale sessions from active index", zap.Int("count", len(stale)))
	}
	return nil
}

// CreateSession corre bajo el lock global de creación para que el chequeo
// "activos < cupo" y el insert sean una sola operación observable.
func (s *RedisStore) CreateSession(ctx context.Context) (domain.Session, error) {
	var created domain.Session
	err := s.withLock(ctx, createLockKey, func() error {
		if err := s.pruneActiveIndex(ctx); err != nil {
			return err
		}
		active, err := s.client.ZCard(ctx, activeSessionsKey).Result()
		if err != nil {
			return fmt.Errorf("%w: count active sessions: %v", ErrBackendUnavailable, err)
		}
		if int(active) >= s.maxActive {
			return fmt.Errorf("%w: limit %d", ErrSessionLimitExceeded, s.maxActive)
		}

		now := time.Now().UTC()
		sess := domain.Session{
			SessionID:            newSessionID(),
			Status:               domain.SessionInProgress,
			LockedCatalogVersion: s.questions.Version(),
			CreatedAt:            now,
			ExpiresAt:            now.Add(s.ttl),
		}

		s.questions.Lock(sess.SessionID)
		if err := s.saveSession(ctx, &sess); err != nil {
			s.questions.Unlock(sess.SessionID)
			return err
		}
		if err := s.client.ZAdd(ctx, activeSessionsKey, redis.Z{
			Score:  float64(now.Unix()),
			Member: sess.SessionID,
		}).Err(); err != nil {
			s.questions.Unlock(sess.SessionID)
			return fmt.Errorf("%w: index session: %v", ErrBackendUnavailable, err)
		}
		created = sess
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return created, nil
}

func (s *RedisStore) StoreResponse(ctx context.Context, sessionID, questionID, answerOptionID string) (domain.UserResponse, error) {
	var stored domain.UserResponse
	err := s.withLock(ctx, sessionLockKey(sessionID), func() error {
		sess, err := s.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status == domain.SessionCompleted {
			return fmt.Errorf("%w: %q", ErrSessionComplete, sessionID)
		}

		resp, err := resolveResponse(s.questions, sessionID, questionID, answerOptionID, time.Now().UTC())
		if err != nil {
			return err
		}
		upsertResponse(&sess, resp)
		if err := s.saveSession(ctx, &sess); err != nil {
			return err
		}
		stored = resp
		return nil
	})
	if err != nil {
		return domain.UserResponse{}, err
	}
	return stored, nil
}

// GetResponses no necesita el lock de sesión: el documento se lee atómico
// como un todo.
func (s *RedisStore) GetResponses(ctx context.Context, sessionID string) ([]domain.UserResponse, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Responses, nil
}

func (s *RedisStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.loadSession(ctx, sessionID)
}

func (s *RedisStore) IsComplete(ctx context.Context, sessionID string) (bool, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return len(sess.Responses) == s.questions.QuestionCount(), nil
}

func (s *RedisStore) CompleteSession(ctx context.Context, sessionID string) (domain.Session, error) {
	var completed domain.Session
	err := s.withLock(ctx, sessionLockKey(sessionID), func() error {
		sess, err := s.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status == domain.SessionCompleted {
			return fmt.Errorf("%w: %q", ErrSessionComplete, sessionID)
		}
		sess.Status = domain.SessionCompleted
		if err := s.saveSession(ctx, &sess); err != nil {
			return err
		}
		// Con el documento ya completado, el lock de catálogo se suelta
		// primero. Si el deindex falla la entrada huérfana no retiene el
		// cupo para siempre: la purga del índice activo la repara.
		s.questions.Unlock(sessionID)
		if err := s.client.ZRem(ctx, activeSessionsKey, sessionID).Err(); err != nil {
			s.logger.Warn("deindex completed session failed, prune will repair",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		completed = sess
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return completed, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.withLock(ctx, sessionLockKey(sessionID), func() error {
		sess, err := s.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status == domain.SessionInProgress {
			s.questions.Unlock(sessionID)
		}
		if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
			return fmt.Errorf("%w: delete session: %v", ErrBackendUnavailable, err)
		}
		if err := s.client.ZRem(ctx, activeSessionsKey, sessionID).Err(); err != nil {
			return fmt.Errorf("%w: deindex session: %v", ErrBackendUnavailable, err)
		}
		return nil
	})
}

func (s *RedisStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var out []domain.Session
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: list sessions: %v", ErrBackendUnavailable, err)
		}
		var sess domain.Session
		if err := json.Unmarshal(payload, &sess); err != nil {
			s.logger.Warn("skipping corrupt session document", zap.String("key", key))
			continue
		}
		out = append(out, sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan sessions: %v", ErrBackendUnavailable, err)
	}
	return out, nil
}
