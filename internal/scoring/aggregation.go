package scoring

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"career-engine/internal/domain"
)

var (
	// ErrIncompleteSession indica que se pidió puntuar una sesión a la que
	// le faltan respuestas. El mensaje incluye esperadas vs. recibidas.
	ErrIncompleteSession = errors.New("session is not complete")
	// ErrStageAggregation indica una violación de invariantes de catálogo
	// o una entrada vacía en la agregación de etapas. Error de
	// configuración, no de input del usuario.
	ErrStageAggregation = errors.New("stage aggregation failed")
)

// RoleSource es la vista del catálogo de roles que necesita el scoring.
type RoleSource interface {
	RoleIDs() []string
	PrimaryStages(roleID string) []string
}

// StageSource es la vista del catálogo de etapas para armar el resultado.
type StageSource interface {
	StageName(id string) string
	Display(stageID string) (domain.StageDisplay, bool)
	RolesForStage(stageID, importance string) []domain.StageRoleMap
}

// ComputeScores agrega de forma determinista las respuestas de una sesión
// completa: suma pesos por rol (con backfill de todo el catálogo en 0.0),
// suma afinidad por etapa (sin backfill), normaliza min-max y rankea.
// Sin aleatoriedad ni dependencia del reloj: dos corridas sobre la misma
// sesión producen resultados idénticos byte a byte.
func ComputeScores(responses []domain.UserResponse, roles RoleSource, expectedCount int) (domain.RoleScoreResult, error) {
	if len(responses) != expectedCount {
		return domain.RoleScoreResult{}, fmt.Errorf(
			"%w: expected %d responses, got %d", ErrIncompleteSession, expectedCount, len(responses),
		)
	}

	rawScores := make(map[string]float64)
	for _, resp := range responses {
		for roleID, weight := range resp.ResolvedRoleWeights {
			rawScores[roleID] += weight
		}
	}
	// El ranking siempre cubre el catálogo completo, aunque la sesión no
	// haya tocado algunos roles.
	for _, roleID := range roles.RoleIDs() {
		if _, ok := rawScores[roleID]; !ok {
			rawScores[roleID] = 0.0
		}
	}

	stageAffinity := make(map[string]float64)
	for _, resp := range responses {
		for stageID, weight := range resp.ResolvedStageWeights {
			stageAffinity[stageID] += weight
		}
	}

	normalized := normalizeMinMax(rawScores, false)

	ranked := make([]domain.RoleScore, 0, len(normalized))
	for roleID, score := range normalized {
		ranked = append(ranked, domain.RoleScore{RoleID: roleID, Score: score})
	}
	// Desempate lexicográfico por id: el orden de iteración de un mapa no
	// es estable y el ranking tiene que serlo.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].RoleID < ranked[j].RoleID
	})

	signalProfile := make(map[string]int)
	for _, resp := range responses {
		for _, signalID := range resp.ResolvedSignals {
			signalProfile[signalID]++
		}
	}

	return domain.RoleScoreResult{
		RankedRoles:   ranked,
		RawScores:     rawScores,
		SignalProfile: signalProfile,
		StageAffinity: stageAffinity,
	}, nil
}

// normalizeMinMax lleva los valores al rango [0,1]. Si todos los valores
// son iguales (incluido el caso todo-cero) cada uno recibe 1.0 en vez de
// dividir por cero. Con clamp, los resultados se acotan por abajo en 0.
func normalizeMinMax(raw map[string]float64, clamp bool) map[string]float64 {
	out := make(map[string]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	first := true
	var min, max float64
	for _, v := range raw {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	scoreRange := max - min
	if scoreRange == 0 {
		for k := range raw {
			out[k] = 1.0
		}
		return out
	}

	for k, v := range raw {
		n := (v - min) / scoreRange
		if clamp && n < 0 {
			n = 0
		}
		out[k] = n
	}
	return out
}

// ValidateDeterminism calcula dos veces y compara. Propiedad requerida:
// el intérprete y la UI dependen de un ranking repetible.
func ValidateDeterminism(responses []domain.UserResponse, roles RoleSource, expectedCount int) (bool, error) {
	first, err := ComputeScores(responses, roles, expectedCount)
	if err != nil {
		return false, err
	}
	second, err := ComputeScores(responses, roles, expectedCount)
	if err != nil {
		return false, err
	}
	return reflect.DeepEqual(first, second), nil
}
