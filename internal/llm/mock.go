package llm

import (
	"context"
)

// MockProvider returns canned answers for tests and for running without
// any LLM backend.
type MockProvider struct {
	// Answer is returned from Generate when set.
	Answer string
	// Err is returned from Generate when set.
	Err error
	// LastQuery and LastContext record the most recent call.
	LastQuery   string
	LastContext string
	Calls       int
}

// Generate records the call and returns the configured answer.
func (m *MockProvider) Generate(ctx context.Context, query, contextText string) (string, error) {
	m.Calls++
	m.LastQuery = query
	m.LastContext = contextText
	if m.Err != nil {
		return "", m.Err
	}
	if m.Answer != "" {
		return m.Answer, nil
	}
	return "mock answer [1]", nil
}
