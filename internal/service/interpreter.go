package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"career-engine/internal/domain"
	"career-engine/internal/llm"
)

// ErrInterpretation indica que no se pudo generar la explicación tras
// agotar los reintentos. El orquestador lo degrada a warning, nunca
// tumba el resultado.
var ErrInterpretation = errors.New("interpretation failed")

const interpreterSystemPrompt = `Eres un experto en orientación de carreras IT para una bolsa de trabajo.
Tu tarea es analizar resultados de un test vocacional y dar recomendaciones profundas pero concisas.
REGLAS:
1. Usa SOLO las descripciones de roles y señales provistas. No inventes cualidades nuevas.
2. Escribe en español profesional, sin relleno.
3. Separa cada sección en párrafos cortos de 2-3 oraciones, usando \n\n entre párrafos.
4. Devuelve la respuesta SIEMPRE y SOLO en formato JSON.`

// RetryConfig controla el backoff exponencial del intérprete ante errores
// transitorios del proveedor.
type RetryConfig struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

// DefaultRetryConfig replica los valores que usamos en producción.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// Interpreter genera la explicación en lenguaje natural del resultado.
// Es el único componente del motor que habla con un LLM.
type Interpreter struct {
	client         llm.Client
	scoreThreshold float64
	retry          RetryConfig
	logger         *zap.Logger
}

// NewInterpreter construye el intérprete. Con scoreThreshold <= 0 se usa
// 0.1, el umbral con el que consideramos "cerrados" los dos primeros roles.
func NewInterpreter(client llm.Client, scoreThreshold float64, retry RetryConfig, logger *zap.Logger) *Interpreter {
	if scoreThreshold <= 0 {
		scoreThreshold = 0.1
	}
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = time.Second
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = 60 * time.Second
	}
	if retry.ExponentialBase < 1 {
		retry.ExponentialBase = 2.0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{
		client:         client,
		scoreThreshold: scoreThreshold,
		retry:          retry,
		logger:         logger,
	}
}

// Interpret arma el prompt con los perfiles del catálogo, llama al LLM con
// reintentos y parsea el JSON de forma defensiva. Determinista en la
// selección de datos: el contenido del prompt solo depende del resultado.
func (i *Interpreter) Interpret(
	ctx context.Context,
	rankedRoles []domain.RoleScore,
	signalProfile map[string]int,
	roleProfiles map[string]domain.RoleProfile,
	signals map[string]domain.Signal,
) (domain.Interpretation, error) {
	if len(rankedRoles) == 0 {
		return domain.Interpretation{}, fmt.Errorf("%w: no ranked roles provided", ErrInterpretation)
	}

	closeScores := false
	if len(rankedRoles) >= 2 && rankedRoles[0].Score-rankedRoles[1].Score < i.scoreThreshold {
		closeScores = true
	}

	prompt := i.buildPrompt(rankedRoles, signalProfile, roleProfiles, signals, closeScores)

	raw, err := i.callWithRetry(ctx, prompt)
	if err != nil {
		return domain.Interpretation{}, err
	}

	return i.parseInterpretation(raw, rankedRoles, roleProfiles), nil
}

func (i *Interpreter) buildPrompt(
	rankedRoles []domain.RoleScore,
	signalProfile map[string]int,
	roleProfiles map[string]domain.RoleProfile,
	signals map[string]domain.Signal,
	closeScores bool,
) string {
	topRoles := rankedRoles
	if len(topRoles) > 3 {
		topRoles = topRoles[:3]
	}

	type signalCount struct {
		id    string
		count int
	}
	counts := make([]signalCount, 0, len(signalProfile))
	for id, n := range signalProfile {
		counts = append(counts, signalCount{id: id, count: n})
	}
	// Orden estable: el prompt no puede variar entre corridas del mismo
	// resultado.
	sort.Slice(counts, func(a, b int) bool {
		if counts[a].count != counts[b].count {
			return counts[a].count > counts[b].count
		}
		return counts[a].id < counts[b].id
	})
	if len(counts) > 5 {
		counts = counts[:5]
	}

	var signalText strings.Builder
	for _, sc := range counts {
		sig, ok := signals[sc.id]
		if !ok {
			continue
		}
		fmt.Fprintf(&signalText, "- %s: %s\n", sig.Name, sig.Description)
	}

	var rolesText strings.Builder
	for _, rs := range topRoles {
		profile, ok := roleProfiles[rs.RoleID]
		if !ok {
			continue
		}
		fmt.Fprintf(&rolesText, "- %s (puntaje: %.2f): %s\n", profile.Name, rs.Score, profile.Description)
	}

	structure := map[string]any{
		"primary_recommendation": "Nombre del rol y un 'por qué' breve",
		"explanation":            "Correspondencia detallada (3-4 oraciones) entre el perfil y el rol",
		"signal_analysis":        "Análisis de las señales dominantes en el contexto de la elección",
		"reasons":                []string{"Razón concreta 1", "Razón concreta 2"},
	}
	if closeScores {
		structure["alternative_roles"] = []string{"Rol 2", "Rol 3"}
		structure["differentiation_criteria"] = "Cómo elegir entre los roles cercanos"
	}
	structureJSON, _ := json.MarshalIndent(structure, "", "  ")

	closeNote := ""
	if closeScores {
		closeNote = "ATENCIÓN: los puntajes de los primeros roles están muy cerca; completa sí o sí las secciones de alternativas y criterios."
	}

	return fmt.Sprintf(`Analiza los datos del test y devuelve un JSON con esta estructura:
%s

DATOS:
PERFIL (señales dominantes):
%s
ROLES:
%s
%s`, structureJSON, signalText.String(), rolesText.String(), closeNote)
}

// callWithRetry reintenta solo errores transitorios (rate limit y
// transporte) con backoff exponencial y jitter de hasta 25% para no
// sincronizar clientes.
func (i *Interpreter) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= i.retry.MaxRetries; attempt++ {
		raw, err := i.client.Generate(ctx, interpreterSystemPrompt, prompt)
		if err == nil {
			return raw, nil
		}
		if !i.retryable(err) {
			return "", fmt.Errorf("%w: %v", ErrInterpretation, err)
		}
		lastErr = err
		if attempt == i.retry.MaxRetries {
			break
		}
		delay := i.backoffDelay(attempt)
		i.logger.Warn("llm call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrInterpretation, ctx.Err())
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("%w: retries exhausted: %v", ErrInterpretation, lastErr)
}

func (i *Interpreter) retryable(err error) bool {
	return errors.Is(err, llm.ErrRateLimited) || errors.Is(err, llm.ErrTransport)
}

func (i *Interpreter) backoffDelay(attempt int) time.Duration {
	delay := float64(i.retry.BaseDelay)
	for n := 0; n < attempt; n++ {
		delay *= i.retry.ExponentialBase
	}
	if delay > float64(i.retry.MaxDelay) {
		delay = float64(i.retry.MaxDelay)
	}
	if i.retry.Jitter {
		delay += delay * rand.Float64() * 0.25
	}
	return time.Duration(delay)
}

// parseInterpretation intenta el JSON limpio, después el primer objeto
// balanceado del texto crudo, y como último recurso degrada a un resultado
// mínimo con el rol ganador. Nunca falla: una respuesta sucia del modelo no
// puede tirar el resultado del test.
func (i *Interpreter) parseInterpretation(raw string, rankedRoles []domain.RoleScore, roleProfiles map[string]domain.RoleProfile) domain.Interpretation {
	cleaned := cleanLLMJSONResponse(raw)

	candidates := make([]string, 0, 3)
	if obj := extractFirstJSONObject(cleaned); obj != "" {
		candidates = append(candidates, obj)
	}
	if obj := extractFirstJSONObject(raw); obj != "" {
		candidates = append(candidates, obj)
	}
	candidates = append(candidates, cleaned)

	for _, candidate := range candidates {
		var parsed struct {
			PrimaryRecommendation   string   `json:"primary_recommendation"`
			Explanation             string   `json:"explanation"`
			SignalAnalysis          string   `json:"signal_analysis"`
			AlternativeRoles        []string `json:"alternative_roles"`
			DifferentiationCriteria string   `json:"differentiation_criteria"`
			Reasons                 []string `json:"reasons"`
		}
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}
		if strings.TrimSpace(parsed.PrimaryRecommendation) == "" && strings.TrimSpace(parsed.Explanation) == "" {
			continue
		}
		if strings.TrimSpace(parsed.PrimaryRecommendation) == "" {
			parsed.PrimaryRecommendation = i.fallbackRecommendation(rankedRoles, roleProfiles)
		}
		return domain.Interpretation{
			PrimaryRecommendation:   strings.TrimSpace(parsed.PrimaryRecommendation),
			Explanation:             strings.TrimSpace(parsed.Explanation),
			SignalAnalysis:          strings.TrimSpace(parsed.SignalAnalysis),
			AlternativeRoles:        parsed.AlternativeRoles,
			DifferentiationCriteria: strings.TrimSpace(parsed.DifferentiationCriteria),
			Reasons:                 parsed.Reasons,
		}
	}

	i.logger.Warn("llm response was not parseable json, degrading", zap.Int("raw_len", len(raw)))
	explanation := cleaned
	if len(explanation) > 500 {
		// Cortar en frontera de runa: el texto es español y un corte a
		// mitad de secuencia UTF-8 produce JSON inválido.
		cut := 500
		for cut > 0 && !utf8.RuneStart(explanation[cut]) {
			cut--
		}
		explanation = explanation[:cut]
	}
	return domain.Interpretation{
		PrimaryRecommendation: i.fallbackRecommendation(rankedRoles, roleProfiles),
		Explanation:           explanation,
		SignalAnalysis:        "No se pudo analizar la respuesta del modelo.",
	}
}

func (i *Interpreter) fallbackRecommendation(rankedRoles []domain.RoleScore, roleProfiles map[string]domain.RoleProfile) string {
	if len(rankedRoles) == 0 {
		return ""
	}
	if profile, ok := roleProfiles[rankedRoles[0].RoleID]; ok && profile.Name != "" {
		return profile.Name
	}
	return rankedRoles[0].RoleID
}
