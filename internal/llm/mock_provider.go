package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockProvider is a scripted judge for tests.
type MockProvider struct {
	mu               sync.Mutex
	Responses        []*CompletionResponse
	Errors           []error
	CallCount        int
	LastRequest      *CompletionRequest
	RequestHistory   []CompletionRequest
	ReplayMode       bool
	SimulatedLatency time.Duration
	MatchFunc        func(*CompletionRequest) *CompletionResponse
}

// NewMockProvider creates a MockProvider cycling through responses. Errors
// are returned by call index and take priority over responses.
func NewMockProvider(responses []*CompletionResponse, errors []error) *MockProvider {
	return &MockProvider{Responses: responses, Errors: errors}
}

// NewReplayProvider creates a MockProvider that hands out responses exactly
// once, in order, and fails once they run out.
func NewReplayProvider(responses []*CompletionResponse) *MockProvider {
	return &MockProvider{Responses: responses, ReplayMode: true}
}

// NewReplyProvider replays the given reply bodies once each, in order.
func NewReplyProvider(contents ...string) *MockProvider {
	responses := make([]*CompletionResponse, len(contents))
	for i, c := range contents {
		responses[i] = Reply(c)
	}
	return NewReplayProvider(responses)
}

// NewRoutingProvider answers each request with the reply of the first route
// whose key occurs in the system prompt. Keys are tried in the order given
// by routes, which alternates key and reply.
func NewRoutingProvider(routes ...string) *MockProvider {
	if len(routes)%2 != 0 {
		panic("mock provider: routes must be key/reply pairs")
	}
	return &MockProvider{
		MatchFunc: func(req *CompletionRequest) *CompletionResponse {
			for i := 0; i < len(routes); i += 2 {
				if strings.Contains(req.SystemPrompt, routes[i]) {
					return Reply(routes[i+1])
				}
			}
			return nil
		},
	}
}

// Reply wraps content as a mock completion.
func Reply(content string) *CompletionResponse {
	return &CompletionResponse{
		Content:      content,
		Model:        "mock-model",
		InputTokens:  10,
		OutputTokens: 10,
		Cost:         0.001,
		DurationMS:   5,
	}
}

func (m *MockProvider) Name() string         { return "mock" }
func (m *MockProvider) DefaultModel() string { return "mock-model" }

func (m *MockProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	latency := m.SimulatedLatency
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.CallCount
	m.CallCount++
	m.LastRequest = req
	m.RequestHistory = append(m.RequestHistory, *req)

	if idx < len(m.Errors) && m.Errors[idx] != nil {
		return nil, m.Errors[idx]
	}

	if m.MatchFunc != nil {
		if resp := m.MatchFunc(req); resp != nil {
			return resp, nil
		}
	}

	if m.ReplayMode {
		if idx >= len(m.Responses) {
			return nil, fmt.Errorf("mock provider: all %d responses exhausted at call %d", len(m.Responses), idx)
		}
		return m.Responses[idx], nil
	}

	if len(m.Responses) > 0 {
		return m.Responses[idx%len(m.Responses)], nil
	}

	return Reply(`{"score": 5, "reason": "default mock response"}`), nil
}

// GetCallCount returns the number of times Complete has been called.
func (m *MockProvider) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetRequestHistory returns a copy of all requests made to this provider.
func (m *MockProvider) GetRequestHistory() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.RequestHistory...)
}
