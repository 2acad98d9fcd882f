package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"career-engine/internal/domain"
)

// Taxonomía de errores del store. Los handlers HTTP los mapean a status
// codes con errors.Is.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionComplete      = errors.New("session already completed")
	ErrInvalidReference     = errors.New("unknown question or answer option")
	ErrSessionLimitExceeded = errors.New("too many active sessions")
	ErrBackendUnavailable   = errors.New("session backend unavailable")
)

// QuestionSource es la vista del banco de preguntas que necesita un store:
// resolución de pesos al escribir, conteo para completitud y el lock que
// impide recargar el banco con sesiones en vuelo.
type QuestionSource interface {
	Question(id string) (domain.Question, bool)
	QuestionCount() int
	Version() string
	Lock(sessionID string)
	Unlock(sessionID string)
}

// Store es el contrato común de los dos backends de sesiones. Toda
// operación mutante sobre un mismo session_id queda totalmente ordenada;
// la creación además serializa el chequeo de cupo contra el insert.
type Store interface {
	CreateSession(ctx context.Context) (domain.Session, error)
	StoreResponse(ctx context.Context, sessionID, questionID, answerOptionID string) (domain.UserResponse, error)
	GetResponses(ctx context.Context, sessionID string) ([]domain.UserResponse, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	IsComplete(ctx context.Context, sessionID string) (bool, error)
	CompleteSession(ctx context.Context, sessionID string) (domain.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]domain.Session, error)
}

func newSessionID() string {
	return "session_" + uuid.NewString()
}

// resolveResponse valida pregunta y opción contra el banco y construye la
// respuesta con el contexto semántico copiado de la opción elegida.
func resolveResponse(src QuestionSource, sessionID, questionID, answerOptionID string, now time.Time) (domain.UserResponse, error) {
	question, ok := src.Question(questionID)
	if !ok {
		return domain.UserResponse{}, fmt.Errorf("%w: question %q", ErrInvalidReference, questionID)
	}
	option, ok := question.Option(answerOptionID)
	if !ok {
		return domain.UserResponse{}, fmt.Errorf("%w: option %q for question %q", ErrInvalidReference, answerOptionID, questionID)
	}

	return domain.UserResponse{
		SessionID:            sessionID,
		QuestionID:           questionID,
		AnswerOptionID:       answerOptionID,
		ResolvedSignals:      append([]string(nil), option.SignalAssociations...),
		ResolvedRoleWeights:  cloneWeights(option.RoleWeights),
		ResolvedStageWeights: cloneWeights(option.StageWeights),
		Timestamp:            now,
	}, nil
}

// upsertResponse reemplaza la respuesta previa de la misma pregunta o la
// agrega al final. Last-write-wins, nunca duplica.
func upsertResponse(s *domain.Session, resp domain.UserResponse) {
	for i, r := range s.Responses {
		if r.QuestionID == resp.QuestionID {
			s.Responses[i] = resp
			return
		}
	}
	s.Responses = append(s.Responses, resp)
}

func cloneWeights(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneSession(s domain.Session) domain.Session {
	out := s
	out.Responses = append([]domain.UserResponse(nil), s.Responses...)
	return out
}
