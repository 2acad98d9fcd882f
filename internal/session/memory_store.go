package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"career-engine/internal/domain"
)

// MemoryStore guarda las sesiones en un mapa protegido por mutex. Backend
// para despliegues de un solo proceso: la expiración es perezosa (cada
// acceso barre primero lo vencido) más un sweep periódico opcional para
// procesos con poco tráfico.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*domain.Session
	questions QuestionSource
	maxActive int
	ttl       time.Duration
	logger    *zap.Logger

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewMemoryStore construye el backend en memoria. Con sweepInterval > 0
// arranca un barrido de fondo; Close lo detiene.
func NewMemoryStore(questions QuestionSource, maxActive int, ttl, sweepInterval time.Duration, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemoryStore{
		sessions:  make(map[string]*domain.Session),
		questions: questions,
		maxActive: maxActive,
		ttl:       ttl,
		logger:    logger,
	}
	if sweepInterval > 0 {
		s.sweepStop = make(chan struct{})
		s.sweepDone = make(chan struct{})
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Close detiene el sweep de fondo si está activo.
func (s *MemoryStore) Close() {
	if s.sweepStop == nil {
		return
	}
	close(s.sweepStop)
	<-s.sweepDone
	s.sweepStop = nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.sweepStop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.evictExpiredLocked(time.Now().UTC())
			s.mu.Unlock()
		}
	}
}

// evictExpiredLocked elimina sesiones vencidas y libera sus locks de
// catálogo. Requiere s.mu tomado.
func (s *MemoryStore) evictExpiredLocked(now time.Time) {
	for id, sess := range s.sessions {
		if !sess.Expired(now) {
			continue
		}
		if sess.Status == domain.SessionInProgress {
			s.questions.Unlock(id)
		}
		delete(s.sessions, id)
		s.logger.Debug("session expired", zap.String("session_id", id))
	}
}

func (s *MemoryStore) activeCountLocked() int {
	n := 0
	for _, sess := range s.sessions {
		if sess.Status == domain.SessionInProgress {
			n++
		}
	}
	return n
}

// CreateSession crea una sesión nueva aplicando el cupo de admisión. El
// chequeo de cupo y el insert ocurren bajo el mismo mutex, así dos creates
// concurrentes no pueden pasarse del límite.
func (s *MemoryStore) CreateSession(_ context.Context) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.evictExpiredLocked(now)

	if s.activeCountLocked() >= s.maxActive {
		return domain.Session{}, fmt.Errorf("%w: limit %d", ErrSessionLimitExceeded, s.maxActive)
	}

	sess := domain.Session{
		SessionID:            newSessionID(),
		Status:               domain.SessionInProgress,
		LockedCatalogVersion: s.questions.Version(),
		CreatedAt:            now,
		ExpiresAt:            now.Add(s.ttl),
	}
	s.questions.Lock(sess.SessionID)
	s.sessions[sess.SessionID] = &sess
	return cloneSession(sess), nil
}

func (s *MemoryStore) getLocked(sessionID string, now time.Time) (*domain.Session, error) {
	s.evictExpiredLocked(now)
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// StoreResponse resuelve los pesos de la opción elegida y los guarda
// denormalizados, reemplazando cualquier respuesta previa de la pregunta.
func (s *MemoryStore) StoreResponse(_ context.Context, sessionID, questionID, answerOptionID string) (domain.UserResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess, err := s.getLocked(sessionID, now)
	if err != nil {
		return domain.UserResponse{}, err
	}
	if sess.Status == domain.SessionCompleted {
		return domain.UserResponse{}, fmt.Errorf("%w: %q", ErrSessionComplete, sessionID)
	}

	resp, err := resolveResponse(s.questions, sessionID, questionID, answerOptionID, now)
	if err != nil {
		return domain.UserResponse{}, err
	}
	upsertResponse(sess, resp)
	return resp, nil
}

func (s *MemoryStore) GetResponses(_ context.Context, sessionID string) ([]domain.UserResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(sessionID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return append([]domain.UserResponse(nil), sess.Responses...), nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(sessionID, time.Now().UTC())
	if err != nil {
		return domain.Session{}, err
	}
	return cloneSession(*sess), nil
}

// IsComplete es verdadero cuando hay una respuesta por cada pregunta de la
// versión bloqueada del banco.
func (s *MemoryStore) IsComplete(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(sessionID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return len(sess.Responses) == s.questions.QuestionCount(), nil
}

// CompleteSession marca la sesión como completada y libera el lock de
// catálogo que sostenía. La transición ocurre exactamente una vez.
func (s *MemoryStore) CompleteSession(_ context.Context, sessionID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(sessionID, time.Now().UTC())
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Status == domain.SessionCompleted {
		return domain.Session{}, fmt.Errorf("%w: %q", ErrSessionComplete, sessionID)
	}
	sess.Status = domain.SessionCompleted
	s.questions.Unlock(sessionID)
	return cloneSession(*sess), nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getLocked(sessionID, time.Now().UTC())
	if err != nil {
		return err
	}
	if sess.Status == domain.SessionInProgress {
		s.questions.Unlock(sessionID)
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked(time.Now().UTC())
	out := make([]domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, cloneSession(*sess))
	}
	return out, nil
}
