// Package llm abstracts the language model used as an evaluation judge.
package llm

import "context"

// Message is one chat turn sent to the judge.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is a single judge call.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
	// JSONMode asks the backend to constrain the reply to a JSON object.
	JSONMode bool
	// Sample distinguishes repeated draws of the same prompt. It is not
	// sent to the backend; it only separates cache entries.
	Sample int
}

// CompletionResponse is the judge reply with usage accounting.
type CompletionResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	Cost         float64
	DurationMS   int64
}

// Provider is a judge backend.
type Provider interface {
	Name() string
	DefaultModel() string
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
