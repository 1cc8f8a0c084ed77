package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockProviderDefaultReply(t *testing.T) {
	mock := NewMockProvider(nil, nil)

	resp, err := mock.Complete(context.Background(), &CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"score": 5, "reason": "default mock response"}` {
		t.Errorf("unexpected default content: %s", resp.Content)
	}
}

func TestMockProviderCycles(t *testing.T) {
	mock := NewMockProvider([]*CompletionResponse{Reply("a"), Reply("b")}, nil)

	want := []string{"a", "b", "a"}
	for i, w := range want {
		resp, err := mock.Complete(context.Background(), &CompletionRequest{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if resp.Content != w {
			t.Errorf("call %d: got %q, want %q", i, resp.Content, w)
		}
	}
}

func TestMockProviderReplyProviderExhausts(t *testing.T) {
	mock := NewReplyProvider("first", "second")

	for _, want := range []string{"first", "second"} {
		resp, err := mock.Complete(context.Background(), &CompletionRequest{})
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if resp.Content != want {
			t.Errorf("got %q, want %q", resp.Content, want)
		}
	}

	if _, err := mock.Complete(context.Background(), &CompletionRequest{}); err == nil {
		t.Error("expected error once replies are exhausted")
	}
}

func TestMockProviderRouting(t *testing.T) {
	mock := NewRoutingProvider(
		"extract claims", `{"claims": []}`,
		"grade", `{"score": 9, "reason": "good"}`,
	)

	resp, err := mock.Complete(context.Background(), &CompletionRequest{SystemPrompt: "Please grade this"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"score": 9, "reason": "good"}` {
		t.Errorf("routed to wrong reply: %s", resp.Content)
	}

	// No route matches: falls back to the default reply.
	resp, err = mock.Complete(context.Background(), &CompletionRequest{SystemPrompt: "unrelated"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"score": 5, "reason": "default mock response"}` {
		t.Errorf("expected default reply, got %s", resp.Content)
	}
}

func TestMockProviderErrorsTakePrecedence(t *testing.T) {
	boom := errors.New("boom")
	mock := NewRoutingProvider("x", "reply")
	mock.Errors = []error{boom}

	_, err := mock.Complete(context.Background(), &CompletionRequest{SystemPrompt: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if mock.GetCallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", mock.GetCallCount())
	}
}

func TestMockProviderRequestHistory(t *testing.T) {
	mock := NewMockProvider(nil, nil)
	for _, p := range []string{"one", "two"} {
		if _, err := mock.Complete(context.Background(), &CompletionRequest{SystemPrompt: p}); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}

	history := mock.GetRequestHistory()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].SystemPrompt != "one" || history[1].SystemPrompt != "two" {
		t.Errorf("unexpected history: %+v", history)
	}
	if mock.LastRequest == nil || mock.LastRequest.SystemPrompt != "two" {
		t.Errorf("LastRequest not updated")
	}
}

func TestMockProviderSimulatedLatencyContextCancel(t *testing.T) {
	mock := NewMockProvider(nil, nil)
	mock.SimulatedLatency = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := mock.Complete(ctx, &CompletionRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if mock.GetCallCount() != 0 {
		t.Errorf("canceled call should not be counted, got %d", mock.GetCallCount())
	}
}
