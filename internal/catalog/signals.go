package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"career-engine/internal/domain"
)

//go:embed data/signals.json
var defaultSignalData []byte

type signalsFile struct {
	Signals []domain.Signal `json:"signals"`
}

// SignalDictionary es el diccionario de señales cognitivas que referencian
// las opciones de respuesta.
type SignalDictionary struct {
	signals map[string]domain.Signal
	order   []string
}

// NewSignalDictionary carga el diccionario embebido.
func NewSignalDictionary(logger *zap.Logger) (*SignalDictionary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var file signalsFile
	if err := json.Unmarshal(defaultSignalData, &file); err != nil {
		return nil, fmt.Errorf("%w: parse signals: %v", ErrCatalogData, err)
	}
	if len(file.Signals) == 0 {
		return nil, fmt.Errorf("%w: empty signal dictionary", ErrCatalogData)
	}

	signals := make(map[string]domain.Signal, len(file.Signals))
	order := make([]string, 0, len(file.Signals))
	for _, s := range file.Signals {
		signals[s.ID] = s
		order = append(order, s.ID)
	}

	logger.Info("signal dictionary loaded", zap.Int("signals", len(order)))
	return &SignalDictionary{signals: signals, order: order}, nil
}

// Signal devuelve una señal por id.
func (d *SignalDictionary) Signal(id string) (domain.Signal, bool) {
	s, ok := d.signals[id]
	return s, ok
}

// AllSignals devuelve las señales en su orden declarado.
func (d *SignalDictionary) AllSignals() []domain.Signal {
	out := make([]domain.Signal, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.signals[id])
	}
	return out
}

// Definitions devuelve el diccionario como mapa para el prompt del intérprete.
func (d *SignalDictionary) Definitions() map[string]domain.Signal {
	out := make(map[string]domain.Signal, len(d.signals))
	for id, s := range d.signals {
		out[id] = s
	}
	return out
}
