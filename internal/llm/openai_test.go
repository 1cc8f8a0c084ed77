package llm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newChatServer(t *testing.T, status int, body any, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var seen map[string]any
	srv := newChatServer(t, http.StatusOK, map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": `{"score": 9, "reason": "matches"}`}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 1000, "completion_tokens": 100, "total_tokens": 1100},
	}, &seen)

	p, err := NewOpenAIProvider("test-key", "", srv.URL+"/v1")
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}

	resp, err := p.Complete(context.Background(), &CompletionRequest{
		SystemPrompt: "You are a grader.",
		Messages:     []Message{{Role: "user", Content: "grade this"}},
		MaxTokens:    256,
		JSONMode:     true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Content != `{"score": 9, "reason": "matches"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.InputTokens != 1000 || resp.OutputTokens != 100 {
		t.Errorf("usage = %d/%d, want 1000/100", resp.InputTokens, resp.OutputTokens)
	}
	wantCost := (1000*2.50 + 100*10.00) / 1_000_000
	if math.Abs(resp.Cost-wantCost) > 1e-12 {
		t.Errorf("Cost = %f, want %f", resp.Cost, wantCost)
	}

	if seen["model"] != "gpt-4o" {
		t.Errorf("request model = %v, want gpt-4o", seen["model"])
	}
	msgs, _ := seen["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("request messages = %d, want 2 (system + user)", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("first message role = %v, want system", first["role"])
	}
	format, _ := seen["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", seen["response_format"])
	}
}

func TestOpenAIProvider_APIError(t *testing.T) {
	srv := newChatServer(t, http.StatusUnauthorized, map[string]any{
		"error": map[string]any{"message": "invalid api key", "type": "invalid_request_error"},
	}, nil)

	p, err := NewOpenAIProvider("bad-key", "gpt-4o-mini", srv.URL+"/v1")
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	if _, err := p.Complete(context.Background(), &CompletionRequest{Messages: []Message{{Role: "user", Content: "x"}}}); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, map[string]any{"id": "x", "choices": []any{}}, nil)

	p, err := NewOpenAIProvider("key", "", srv.URL+"/v1")
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	if _, err := p.Complete(context.Background(), &CompletionRequest{}); err == nil {
		t.Fatal("expected error when no choices are returned")
	}
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider("", "", ""); err == nil {
		t.Fatal("expected error without API key")
	}
	p, err := NewOpenAIProvider("key", "", "")
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	if p.DefaultModel() != "gpt-4o" {
		t.Errorf("DefaultModel = %q, want gpt-4o", p.DefaultModel())
	}
}
