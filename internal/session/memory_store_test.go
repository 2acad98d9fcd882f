package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"career-engine/internal/domain"
)

// fakeQuestions es un banco mínimo de dos preguntas con conteo de locks.
type fakeQuestions struct {
	mu        sync.Mutex
	questions map[string]domain.Question
	count     int
	locks     map[string]struct{}
}

func newFakeQuestions() *fakeQuestions {
	q1 := domain.Question{
		ID: "q1",
		AnswerOptions: []domain.AnswerOption{
			{ID: "q1_a", SignalAssociations: []string{"sig_x"}, RoleWeights: map[string]float64{"role_a": 2}, StageWeights: map[string]float64{"stage_1": 1}},
			{ID: "q1_b", RoleWeights: map[string]float64{"role_b": 2}},
		},
	}
	q2 := domain.Question{
		ID: "q2",
		AnswerOptions: []domain.AnswerOption{
			{ID: "q2_a", RoleWeights: map[string]float64{"role_a": 1}},
			{ID: "q2_b", RoleWeights: map[string]float64{"role_b": 1}},
		},
	}
	return &fakeQuestions{
		questions: map[string]domain.Question{"q1": q1, "q2": q2},
		count:     2,
		locks:     make(map[string]struct{}),
	}
}

func (f *fakeQuestions) Question(id string) (domain.Question, bool) {
	q, ok := f.questions[id]
	return q, ok
}

func (f *fakeQuestions) QuestionCount() int { return f.count }
func (f *fakeQuestions) Version() string    { return "test_v1" }

func (f *fakeQuestions) Lock(sessionID string) {
	f.mu.Lock()
	f.locks[sessionID] = struct{}{}
	f.mu.Unlock()
}

func (f *fakeQuestions) Unlock(sessionID string) {
	f.mu.Lock()
	delete(f.locks, sessionID)
	f.mu.Unlock()
}

func (f *fakeQuestions) lockCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.locks)
}

func newTestStore(questions *fakeQuestions, maxActive int, ttl time.Duration) *MemoryStore {
	return NewMemoryStore(questions, maxActive, ttl, 0, nil)
}

func TestMemoryStore_FullFlow(t *testing.T) {
	ctx := context.Background()
	questions := newFakeQuestions()
	store := newTestStore(questions, 10, time.Minute)

	sess, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Status != domain.SessionInProgress {
		t.Fatalf("expected in_progress, got %q", sess.Status)
	}
	if sess.LockedCatalogVersion != "test_v1" {
		t.Fatalf("expected locked catalog version, got %q", sess.LockedCatalogVersion)
	}
	if questions.lockCount() != 1 {
		t.Fatalf("expected 1 catalog lock, got %d", questions.lockCount())
	}

	if _, err := store.StoreResponse(ctx, sess.SessionID, "q1", "q1_a"); err != nil {
		t.Fatalf("store q1: %v", err)
	}
	complete, err := store.IsComplete(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("is complete: %v", err)
	}
	if complete {
		t.Fatal("session should not be complete with 1 of 2 answers")
	}

	if _, err := store.StoreResponse(ctx, sess.SessionID, "q2", "q2_b"); err != nil {
		t.Fatalf("store q2: %v", err)
	}
	complete, err = store.IsComplete(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("is complete: %v", err)
	}
	if !complete {
		t.Fatal("session should be complete with 2 of 2 answers")
	}

	completed, err := store.CompleteSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if completed.Status != domain.SessionCompleted {
		t.Fatalf("expected completed, got %q", completed.Status)
	}
	if questions.lockCount() != 0 {
		t.Fatalf("expected catalog lock released, got %d", questions.lockCount())
	}

	// Una sesión completada es de solo lectura.
	if _, err := store.StoreResponse(ctx, sess.SessionID, "q1", "q1_b"); !errors.Is(err, ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete, got %v", err)
	}
	if _, err := store.CompleteSession(ctx, sess.SessionID); !errors.Is(err, ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete on double complete, got %v", err)
	}
}

func TestMemoryStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeQuestions(), 10, time.Minute)

	sess, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := store.StoreResponse(ctx, sess.SessionID, "q1", "q1_a"); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := store.StoreResponse(ctx, sess.SessionID, "q1", "q1_b"); err != nil {
		t.Fatalf("second answer: %v", err)
	}

	responses, err := store.GetResponses(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("get responses: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected 1 response after re-answer, got %d", len(responses))
	}
	if responses[0].AnswerOptionID != "q1_b" {
		t.Fatalf("expected latest answer q1_b, got %q", responses[0].AnswerOptionID)
	}
	if responses[0].ResolvedRoleWeights["role_b"] != 2 {
		t.Fatalf("expected resolved weights from latest option, got %v", responses[0].ResolvedRoleWeights)
	}
}

func TestMemoryStore_InvalidReference(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeQuestions(), 10, time.Minute)

	sess, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := store.StoreResponse(ctx, sess.SessionID, "q99", "q1_a"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for unknown question, got %v", err)
	}
	if _, err := store.StoreResponse(ctx, sess.SessionID, "q1", "nope"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for unknown option, got %v", err)
	}
	if _, err := store.StoreResponse(ctx, "session_missing", "q1", "q1_a"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStore_AdmissionCeiling(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeQuestions(), 2, time.Minute)

	first, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	if _, err := store.CreateSession(ctx); err != nil {
		t.Fatalf("create 2: %v", err)
	}
	if _, err := store.CreateSession(ctx); !errors.Is(err, ErrSessionLimitExceeded) {
		t.Fatalf("expected ErrSessionLimitExceeded, got %v", err)
	}

	// Completar una libera cupo: solo las in_progress cuentan.
	if _, err := store.StoreResponse(ctx, first.SessionID, "q1", "q1_a"); err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if _, err := store.StoreResponse(ctx, first.SessionID, "q2", "q2_a"); err != nil {
		t.Fatalf("answer q2: %v", err)
	}
	if _, err := store.CompleteSession(ctx, first.SessionID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := store.CreateSession(ctx); err != nil {
		t.Fatalf("create after complete: %v", err)
	}
}

func TestMemoryStore_ConcurrentCreatesRespectCeiling(t *testing.T) {
	ctx := context.Background()
	const maxActive = 5
	store := newTestStore(newFakeQuestions(), maxActive, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.CreateSession(ctx); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != maxActive {
		t.Fatalf("expected exactly %d sessions created, got %d", maxActive, created)
	}
}

func TestMemoryStore_ConcurrentAnswersSameQuestion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeQuestions(), 10, time.Minute)

	sess, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Muchas escrituras concurrentes sobre la misma pregunta: tiene que
	// sobrevivir exactamente una respuesta, nunca duplicados ni una
	// entrada a medio escribir.
	var wg sync.WaitGroup
	options := []string{"q1_a", "q1_b"}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(optionID string) {
			defer wg.Done()
			if _, err := store.StoreResponse(ctx, sess.SessionID, "q1", optionID); err != nil {
				t.Errorf("store response: %v", err)
			}
		}(options[i%2])
	}
	wg.Wait()

	responses, err := store.GetResponses(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("get responses: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected exactly 1 response for q1, got %d", len(responses))
	}
	got := responses[0]
	if got.QuestionID != "q1" {
		t.Fatalf("expected question q1, got %q", got.QuestionID)
	}
	switch got.AnswerOptionID {
	case "q1_a":
		if got.ResolvedRoleWeights["role_a"] != 2 || len(got.ResolvedSignals) != 1 {
			t.Fatalf("response mixes option payloads: %+v", got)
		}
	case "q1_b":
		if got.ResolvedRoleWeights["role_b"] != 2 || len(got.ResolvedSignals) != 0 {
			t.Fatalf("response mixes option payloads: %+v", got)
		}
	default:
		t.Fatalf("unexpected answer option %q", got.AnswerOptionID)
	}
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	questions := newFakeQuestions()
	store := newTestStore(questions, 10, 10*time.Millisecond)

	sess, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := store.GetSession(ctx, sess.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if questions.lockCount() != 0 {
		t.Fatalf("expected catalog lock released on expiry, got %d", questions.lockCount())
	}
}

func TestMemoryStore_DeleteReleasesLock(t *testing.T) {
	ctx := context.Background()
	questions := newFakeQuestions()
	store := newTestStore(questions, 10, time.Minute)

	sess, err := store.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.DeleteSession(ctx, sess.SessionID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if questions.lockCount() != 0 {
		t.Fatalf("expected catalog lock released on delete, got %d", questions.lockCount())
	}
	if err := store.DeleteSession(ctx, sess.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestMemoryStore_ListSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeQuestions(), 10, time.Minute)

	if _, err := store.CreateSession(ctx); err != nil {
		t.Fatalf("create 1: %v", err)
	}
	if _, err := store.CreateSession(ctx); err != nil {
		t.Fatalf("create 2: %v", err)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
}
