package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"career-engine/internal/domain"
)

//go:embed data/questions.json
var defaultQuestionsData []byte

var (
	// ErrCatalogLocked se devuelve al intentar recargar el banco mientras
	// alguna sesión activa lo tiene bloqueado.
	ErrCatalogLocked = errors.New("question catalog locked by active sessions")
	// ErrCatalogData indica datos de catálogo inválidos o ilegibles.
	ErrCatalogData = errors.New("invalid catalog data")
)

type questionsFile struct {
	Version   string            `json:"version"`
	Questions []domain.Question `json:"questions"`
}

// QuestionCatalog mantiene el banco versionado de preguntas. Las sesiones
// lo bloquean mientras están en curso: con bloqueos activos Reload falla
// en vez de mutar la semántica de sesiones en vuelo.
type QuestionCatalog struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	order     []string
	version   string
	locked    map[string]struct{}
	logger    *zap.Logger
}

// NewQuestionCatalog carga el banco embebido en el binario.
func NewQuestionCatalog(logger *zap.Logger) (*QuestionCatalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &QuestionCatalog{
		locked: make(map[string]struct{}),
		logger: logger,
	}
	if err := c.load(defaultQuestionsData); err != nil {
		return nil, err
	}
	return c, nil
}

func parseQuestions(data []byte) (map[string]domain.Question, []string, string, error) {
	var file questionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, "", fmt.Errorf("%w: parse questions: %v", ErrCatalogData, err)
	}
	if len(file.Questions) == 0 {
		return nil, nil, "", fmt.Errorf("%w: no questions in data file", ErrCatalogData)
	}

	questions := make(map[string]domain.Question, len(file.Questions))
	order := make([]string, 0, len(file.Questions))
	for _, q := range file.Questions {
		if q.ID == "" || len(q.AnswerOptions) < 2 {
			return nil, nil, "", fmt.Errorf("%w: question %q needs an id and at least 2 options", ErrCatalogData, q.ID)
		}
		if _, dup := questions[q.ID]; dup {
			return nil, nil, "", fmt.Errorf("%w: duplicate question id %q", ErrCatalogData, q.ID)
		}
		questions[q.ID] = q
		order = append(order, q.ID)
	}

	version := file.Version
	if version == "" {
		version = "v1"
	}
	return questions, order, version, nil
}

func (c *QuestionCatalog) load(data []byte) error {
	questions, order, version, err := parseQuestions(data)
	if err != nil {
		return err
	}

	// La verificación de bloqueos y el swap comparten la misma sección
	// crítica: un Lock concurrente no puede colarse entre ambas.
	c.mu.Lock()
	if active := len(c.locked); active > 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d active sessions", ErrCatalogLocked, active)
	}
	c.questions = questions
	c.order = order
	c.version = version
	c.mu.Unlock()

	c.logger.Info("question catalog loaded",
		zap.String("version", version),
		zap.Int("questions", len(order)),
	)
	return nil
}

// Question devuelve una pregunta por id.
func (c *QuestionCatalog) Question(id string) (domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.questions[id]
	return q, ok
}

// AllQuestions devuelve todas las preguntas en el orden declarado del banco.
func (c *QuestionCatalog) AllQuestions() []domain.Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Question, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.questions[id])
	}
	return out
}

// QuestionCount devuelve el total de preguntas de la versión cargada.
func (c *QuestionCatalog) QuestionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Version devuelve el identificador inmutable de la versión cargada.
func (c *QuestionCatalog) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Lock marca el banco como en uso por una sesión.
func (c *QuestionCatalog) Lock(sessionID string) {
	c.mu.Lock()
	c.locked[sessionID] = struct{}{}
	c.mu.Unlock()
}

// Unlock libera el bloqueo que sostiene una sesión.
func (c *QuestionCatalog) Unlock(sessionID string) {
	c.mu.Lock()
	delete(c.locked, sessionID)
	c.mu.Unlock()
}

// HasActiveLocks indica si alguna sesión sostiene el banco.
func (c *QuestionCatalog) HasActiveLocks() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.locked) > 0
}

// ActiveLocks devuelve cuántas sesiones sostienen el banco.
func (c *QuestionCatalog) ActiveLocks() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.locked)
}

// Reload recarga el banco desde un archivo, o desde los datos embebidos si
// path es vacío. Falla con ErrCatalogLocked si hay sesiones activas.
func (c *QuestionCatalog) Reload(path string) error {
	data := defaultQuestionsData
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: read %s: %v", ErrCatalogData, path, err)
		}
		data = b
	}
	return c.load(data)
}
