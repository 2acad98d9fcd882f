package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"career-engine/internal/domain"
	"career-engine/internal/llm"
)

// scriptedClient devuelve respuestas pre-armadas llamada a llamada y
// captura el último prompt.
type scriptedClient struct {
	responses  []string
	errs       []error
	calls      int
	lastPrompt string
}

func (c *scriptedClient) Generate(_ context.Context, _, prompt string) (string, error) {
	idx := c.calls
	c.calls++
	c.lastPrompt = prompt
	var resp string
	var err error
	if idx < len(c.responses) {
		resp = c.responses[idx]
	}
	if idx < len(c.errs) {
		err = c.errs[idx]
	}
	return resp, err
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		BaseDelay:       time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func testProfiles() map[string]domain.RoleProfile {
	return map[string]domain.RoleProfile{
		"role_a": {ID: "role_a", Name: "Analista", Description: "Analiza datos y procesos."},
		"role_b": {ID: "role_b", Name: "Backend", Description: "Construye servicios."},
	}
}

func testSignals() map[string]domain.Signal {
	return map[string]domain.Signal{
		"sig_x": {ID: "sig_x", Name: "Pensamiento sistémico", Description: "Ve el todo antes que las partes."},
		"sig_y": {ID: "sig_y", Name: "Orientación al detalle", Description: "Detecta inconsistencias."},
	}
}

func TestInterpreter_ParsesFencedJSON(t *testing.T) {
	client := &scriptedClient{
		responses: []string{"```json\n{\"primary_recommendation\": \"Analista\", \"explanation\": \"Encaja bien.\", \"signal_analysis\": \"Señales claras.\", \"reasons\": [\"r1\"]}\n```"},
		errs:      []error{nil},
	}
	interp := NewInterpreter(client, 0.1, fastRetry(), nil)

	ranked := []domain.RoleScore{{RoleID: "role_a", Score: 1.0}, {RoleID: "role_b", Score: 0.2}}
	result, err := interp.Interpret(context.Background(), ranked, map[string]int{"sig_x": 3}, testProfiles(), testSignals())
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if result.PrimaryRecommendation != "Analista" {
		t.Fatalf("unexpected recommendation %q", result.PrimaryRecommendation)
	}
	if result.Explanation != "Encaja bien." {
		t.Fatalf("unexpected explanation %q", result.Explanation)
	}
	if len(result.Reasons) != 1 {
		t.Fatalf("expected reasons parsed, got %v", result.Reasons)
	}
}

func TestInterpreter_DegradesOnUnparseableResponse(t *testing.T) {
	client := &scriptedClient{
		responses: []string{"esto no es json para nada"},
		errs:      []error{nil},
	}
	interp := NewInterpreter(client, 0.1, fastRetry(), nil)

	ranked := []domain.RoleScore{{RoleID: "role_a", Score: 1.0}}
	result, err := interp.Interpret(context.Background(), ranked, nil, testProfiles(), testSignals())
	if err != nil {
		t.Fatalf("interpret should not fail on dirty output: %v", err)
	}
	// Degrada al nombre del rol ganador con el texto crudo de explicación.
	if result.PrimaryRecommendation != "Analista" {
		t.Fatalf("expected fallback to winning role name, got %q", result.PrimaryRecommendation)
	}
	if result.Explanation == "" {
		t.Fatal("expected raw text carried as explanation")
	}
}

func TestInterpreter_TruncatesFallbackOnRuneBoundary(t *testing.T) {
	// Texto multibyte sin JSON que supera el tope de la explicación: el
	// corte tiene que caer en frontera de runa, nunca a mitad de una
	// secuencia UTF-8.
	raw := strings.Repeat("€", 200)
	client := &scriptedClient{
		responses: []string{raw},
		errs:      []error{nil},
	}
	interp := NewInterpreter(client, 0.1, fastRetry(), nil)

	ranked := []domain.RoleScore{{RoleID: "role_a", Score: 1.0}}
	result, err := interp.Interpret(context.Background(), ranked, nil, testProfiles(), testSignals())
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if len(result.Explanation) == 0 || len(result.Explanation) > 500 {
		t.Fatalf("expected truncated explanation, got %d bytes", len(result.Explanation))
	}
	if !utf8.ValidString(result.Explanation) {
		t.Fatal("truncated explanation is not valid UTF-8")
	}
}

func TestInterpreter_RetriesTransientErrors(t *testing.T) {
	client := &scriptedClient{
		responses: []string{"", "", "{\"primary_recommendation\": \"Backend\", \"explanation\": \"ok\"}"},
		errs: []error{
			fmt.Errorf("%w: status=429", llm.ErrRateLimited),
			fmt.Errorf("%w: connection refused", llm.ErrTransport),
			nil,
		},
	}
	interp := NewInterpreter(client, 0.1, fastRetry(), nil)

	ranked := []domain.RoleScore{{RoleID: "role_b", Score: 0.9}}
	result, err := interp.Interpret(context.Background(), ranked, nil, testProfiles(), testSignals())
	if err != nil {
		t.Fatalf("interpret after retries: %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 calls (2 retries), got %d", client.calls)
	}
	if result.PrimaryRecommendation != "Backend" {
		t.Fatalf("unexpected recommendation %q", result.PrimaryRecommendation)
	}
}

func TestInterpreter_NonRetryableFailsFast(t *testing.T) {
	client := &scriptedClient{
		responses: []string{""},
		errs:      []error{errors.New("llm api error: bad request")},
	}
	interp := NewInterpreter(client, 0.1, fastRetry(), nil)

	ranked := []domain.RoleScore{{RoleID: "role_a", Score: 1.0}}
	_, err := interp.Interpret(context.Background(), ranked, nil, testProfiles(), testSignals())
	if !errors.Is(err, ErrInterpretation) {
		t.Fatalf("expected ErrInterpretation, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected no retries for api errors, got %d calls", client.calls)
	}
}

func TestInterpreter_ExhaustsRetries(t *testing.T) {
	rateLimited := fmt.Errorf("%w: status=429", llm.ErrRateLimited)
	client := &scriptedClient{
		responses: []string{"", "", ""},
		errs:      []error{rateLimited, rateLimited, rateLimited},
	}
	interp := NewInterpreter(client, 0.1, fastRetry(), nil)

	ranked := []domain.RoleScore{{RoleID: "role_a", Score: 1.0}}
	_, err := interp.Interpret(context.Background(), ranked, nil, testProfiles(), testSignals())
	if !errors.Is(err, ErrInterpretation) {
		t.Fatalf("expected ErrInterpretation after exhausting retries, got %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 calls (MaxRetries=2), got %d", client.calls)
	}
}

func TestInterpreter_CloseScoresAskForAlternatives(t *testing.T) {
	client := &scriptedClient{
		responses: []string{"{\"primary_recommendation\": \"Analista\", \"explanation\": \"ok\"}"},
		errs:      []error{nil},
	}
	interp := NewInterpreter(client, 0.1, fastRetry(), nil)

	// Diferencia 0.05 < umbral 0.1: el prompt debe pedir alternativas.
	ranked := []domain.RoleScore{{RoleID: "role_a", Score: 1.0}, {RoleID: "role_b", Score: 0.95}}
	if _, err := interp.Interpret(context.Background(), ranked, nil, testProfiles(), testSignals()); err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if !strings.Contains(client.lastPrompt, "alternative_roles") {
		t.Fatal("expected close-score prompt to request alternatives")
	}

	// Diferencia holgada: sin sección de alternativas.
	client2 := &scriptedClient{
		responses: []string{"{\"primary_recommendation\": \"Analista\", \"explanation\": \"ok\"}"},
		errs:      []error{nil},
	}
	interp2 := NewInterpreter(client2, 0.1, fastRetry(), nil)
	ranked = []domain.RoleScore{{RoleID: "role_a", Score: 1.0}, {RoleID: "role_b", Score: 0.3}}
	if _, err := interp2.Interpret(context.Background(), ranked, nil, testProfiles(), testSignals()); err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if strings.Contains(client2.lastPrompt, "alternative_roles") {
		t.Fatal("did not expect alternatives section for clear winner")
	}
}

func TestCleanLLMJSONResponse(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": "{\"a\":1}",
		"```\n{\"a\":1}\n```":     "{\"a\":1}",
		"  {\"a\":1}  ":           "{\"a\":1}",
		"":                        "",
	}
	for in, want := range cases {
		if got := cleanLLMJSONResponse(in); got != want {
			t.Fatalf("clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractFirstJSONObject(t *testing.T) {
	in := `ruido antes {"a": "valor con {llave} y \"comilla\"", "b": 2} ruido despues {"c": 3}`
	want := `{"a": "valor con {llave} y \"comilla\"", "b": 2}`
	if got := extractFirstJSONObject(in); got != want {
		t.Fatalf("extract = %q, want %q", got, want)
	}
	if got := extractFirstJSONObject("sin objeto"); got != "" {
		t.Fatalf("expected empty for no object, got %q", got)
	}
	if got := extractFirstJSONObject("{nunca cierra"); got != "" {
		t.Fatalf("expected empty for unbalanced braces, got %q", got)
	}
}
