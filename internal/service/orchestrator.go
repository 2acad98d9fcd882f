package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"career-engine/internal/domain"
	"career-engine/internal/scoring"
	"career-engine/internal/session"
)

// Warnings que el orquestador adjunta al resultado cuando degrada una
// parte opcional en vez de fallar el request.
const (
	WarningExplanationUnavailable = "explanation_unavailable"
	WarningStageUnavailable       = "stage_recommendation_unavailable"
)

// Catalogs agrupa las vistas de catálogo que consume el orquestador.
type Catalogs struct {
	Questions interface {
		AllQuestions() []domain.Question
		QuestionCount() int
		Version() string
	}
	Roles interface {
		scoring.RoleSource
		Profiles() map[string]domain.RoleProfile
	}
	Stages interface {
		scoring.StageSource
	}
	Signals interface {
		Definitions() map[string]domain.Signal
	}
}

// InterviewService coordina el flujo completo del test: sesión, respuestas,
// agregación determinista, recomendación de etapa y explicación best-effort.
type InterviewService struct {
	store       session.Store
	catalogs    Catalogs
	interpreter *Interpreter
	logger      *zap.Logger
}

// NewInterviewService construye el orquestador. interpreter puede ser nil:
// en ese caso todo resultado lleva el warning de explicación no disponible.
func NewInterviewService(store session.Store, catalogs Catalogs, interpreter *Interpreter, logger *zap.Logger) *InterviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterviewService{
		store:       store,
		catalogs:    catalogs,
		interpreter: interpreter,
		logger:      logger,
	}
}

// Questions devuelve el banco completo en su orden declarado.
func (s *InterviewService) Questions() []domain.Question {
	return s.catalogs.Questions.AllQuestions()
}

// Start crea una sesión nueva sujeta al cupo de admisión.
func (s *InterviewService) Start(ctx context.Context) (domain.Session, error) {
	sess, err := s.store.CreateSession(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	s.logger.Info("session started",
		zap.String("session_id", sess.SessionID),
		zap.String("catalog_version", sess.LockedCatalogVersion),
	)
	return sess, nil
}

// Submit guarda la respuesta de una pregunta. Re-responder la misma
// pregunta reemplaza la respuesta anterior.
func (s *InterviewService) Submit(ctx context.Context, sessionID, questionID, answerOptionID string) (domain.UserResponse, error) {
	return s.store.StoreResponse(ctx, sessionID, questionID, answerOptionID)
}

// Session devuelve el estado actual de una sesión.
func (s *InterviewService) Session(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// Complete valida completitud, marca la sesión como terminada y computa el
// resultado. La explicación y la recomendación de etapa se aíslan: si
// fallan, el resultado sale igual con un warning. El ranking de roles nunca
// se degrada. Con skipExplanation el LLM no se llama y no hay warning: la
// omisión fue pedida, no sufrida.
func (s *InterviewService) Complete(ctx context.Context, sessionID string, skipExplanation bool) (domain.TestResult, error) {
	// Completitud se valida ANTES de tocar el estado: una sesión
	// incompleta queda en in_progress y puede seguir respondiendo.
	complete, err := s.store.IsComplete(ctx, sessionID)
	if err != nil {
		return domain.TestResult{}, err
	}
	expected := s.catalogs.Questions.QuestionCount()
	if !complete {
		responses, err := s.store.GetResponses(ctx, sessionID)
		if err != nil {
			return domain.TestResult{}, err
		}
		return domain.TestResult{}, fmt.Errorf(
			"%w: expected %d responses, got %d", scoring.ErrIncompleteSession, expected, len(responses),
		)
	}

	sess, err := s.store.CompleteSession(ctx, sessionID)
	if err != nil {
		return domain.TestResult{}, err
	}

	scores, err := scoring.ComputeScores(sess.Responses, s.catalogs.Roles, expected)
	if err != nil {
		return domain.TestResult{}, err
	}

	result := domain.TestResult{
		SessionID:     sessionID,
		RankedRoles:   scores.RankedRoles,
		SignalProfile: scores.SignalProfile,
	}

	stageResult, err := scoring.ComputeStageScores(scores.RankedRoles, scores.StageAffinity, s.catalogs.Roles, s.catalogs.Stages)
	if err != nil {
		s.logger.Error("stage aggregation failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, WarningStageUnavailable)
	} else {
		result.RankedStages = stageResult.RankedStages
		result.StageRecommendation = &stageResult.Recommendation
	}

	if !skipExplanation {
		interpretation, err := s.interpret(ctx, scores)
		if err != nil {
			s.logger.Warn("interpretation unavailable",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			result.Warnings = append(result.Warnings, WarningExplanationUnavailable)
		} else {
			result.Interpretation = interpretation
		}
	}

	s.logger.Info("session completed",
		zap.String("session_id", sessionID),
		zap.Int("responses", len(sess.Responses)),
		zap.Strings("warnings", result.Warnings),
	)
	return result, nil
}

func (s *InterviewService) interpret(ctx context.Context, scores domain.RoleScoreResult) (*domain.Interpretation, error) {
	if s.interpreter == nil {
		return nil, errors.New("interpreter disabled")
	}
	interpretation, err := s.interpreter.Interpret(
		ctx,
		scores.RankedRoles,
		scores.SignalProfile,
		s.catalogs.Roles.Profiles(),
		s.catalogs.Signals.Definitions(),
	)
	if err != nil {
		return nil, err
	}
	return &interpretation, nil
}
