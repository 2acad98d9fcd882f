package domain

// Tipos de pregunta soportados por el banco.
const (
	QuestionTypeLikert5      = "likert_5"
	QuestionTypeForcedChoice = "forced_choice"
)

// AnswerOption es una opción seleccionable con su contexto semántico:
// señales cognitivas y pesos por rol/etapa que se copian a la respuesta
// al momento de responder.
type AnswerOption struct {
	ID                 string             `json:"id"`
	Text               string             `json:"text"`
	SignalAssociations []string           `json:"signal_associations,omitempty"`
	RoleWeights        map[string]float64 `json:"role_weights,omitempty"`
	StageWeights       map[string]float64 `json:"stage_weights,omitempty"`
}

// Question es una pregunta del banco versionado. Inmutable en runtime.
type Question struct {
	ID                   string         `json:"id"`
	Text                 string         `json:"text"`
	ThematicBlock        string         `json:"thematic_block"`
	AnswerOptions        []AnswerOption `json:"answer_options"`
	Type                 string         `json:"type,omitempty"`
	IsReverseKeyed       bool           `json:"is_reverse_keyed,omitempty"`
	ForcedChoicePriority bool           `json:"forced_choice_priority,omitempty"`
}

// Option busca una opción por id dentro de la pregunta.
func (q Question) Option(optionID string) (AnswerOption, bool) {
	for _, opt := range q.AnswerOptions {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return AnswerOption{}, false
}
