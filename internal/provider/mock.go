package provider

import (
	"context"
	"errors"
)

// MockBackend provides scripted responses for tests. Respond picks the
// reply from the prompt pair; when nil, Responses are returned in order.
type MockBackend struct {
	Role      Name
	Offline   bool
	Err       error
	Respond   func(systemPrompt, userPrompt string) (string, error)
	Responses []string

	Calls    int
	LastUser string
}

func (m *MockBackend) Name() Name {
	if m.Role == "" {
		return Primary
	}
	return m.Role
}

func (m *MockBackend) Configured() bool {
	return !m.Offline
}

func (m *MockBackend) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	m.Calls++
	m.LastUser = userPrompt
	if m.Err != nil {
		return "", m.Err
	}
	if m.Respond != nil {
		return m.Respond(systemPrompt, userPrompt)
	}
	if len(m.Responses) == 0 {
		return "", errors.New("mock backend has no responses left")
	}
	resp := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}
	return resp, nil
}
