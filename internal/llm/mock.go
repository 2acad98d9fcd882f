package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Err      error
	Calls    int
}

func (m *MockClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.Calls++
	return m.Response, m.Err
}
