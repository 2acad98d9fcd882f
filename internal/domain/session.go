package domain

import "time"

// SessionStatus es el estado del ciclo de vida de una sesión de test.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// UserResponse es una respuesta con contexto semántico resuelto al momento
// de responder. Los pesos se copian de la opción elegida para que una
// recarga posterior del banco no cambie el significado de la sesión.
type UserResponse struct {
	SessionID            string             `json:"session_id"`
	QuestionID           string             `json:"question_id"`
	AnswerOptionID       string             `json:"answer_option_id"`
	ResolvedSignals      []string           `json:"resolved_signals,omitempty"`
	ResolvedRoleWeights  map[string]float64 `json:"resolved_role_weights,omitempty"`
	ResolvedStageWeights map[string]float64 `json:"resolved_stage_weights,omitempty"`
	Timestamp            time.Time          `json:"timestamp"`
}

// Session es una corrida del cuestionario de longitud fija.
type Session struct {
	SessionID            string         `json:"session_id"`
	Responses            []UserResponse `json:"responses"`
	Status               SessionStatus  `json:"status"`
	LockedCatalogVersion string         `json:"locked_catalog_version"`
	CreatedAt            time.Time      `json:"created_at"`
	ExpiresAt            time.Time      `json:"expires_at"`
}

// Expired indica si la sesión ya pasó su tiempo de vida.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ResponseFor devuelve la respuesta registrada para una pregunta, si existe.
func (s Session) ResponseFor(questionID string) (UserResponse, bool) {
	for _, r := range s.Responses {
		if r.QuestionID == questionID {
			return r, true
		}
	}
	return UserResponse{}, false
}
