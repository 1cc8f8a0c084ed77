package query_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openshift/lightspeed-eval/internal/query"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

func newQueryServer(t *testing.T, statusCode int, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAsk_ReturnsResponseField(t *testing.T) {
	srv := newQueryServer(t, http.StatusOK, `{"response": "ok"}`, nil)
	c := query.New(query.Config{Endpoint: srv.URL, Credential: "token"})

	got, err := c.Ask(context.Background(), "x")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "ok" {
		t.Errorf("Ask = %q, want %q", got, "ok")
	}
}

func TestAsk_SendsExpectedRequest(t *testing.T) {
	var (
		gotMethod string
		gotHeader http.Header
		gotBody   map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_, _ = io.WriteString(w, `{"response": "cluster is healthy"}`)
	}))
	defer srv.Close()

	c := query.New(query.Config{Endpoint: srv.URL, Credential: "s3cret"})
	if _, err := c.Ask(context.Background(), "What is the status of the cluster?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if got := gotHeader.Get("Authorization"); got != "Bearer s3cret" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer s3cret")
	}
	if got := gotHeader.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := gotHeader.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want application/json", got)
	}
	if gotBody["query"] != "What is the status of the cluster?" {
		t.Errorf("body query = %q", gotBody["query"])
	}
}

func TestAsk_MissingCredentialMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := newQueryServer(t, http.StatusOK, `{"response": "ok"}`, &hits)
	c := query.New(query.Config{Endpoint: srv.URL})

	_, err := c.Ask(context.Background(), "x")

	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
	if cfgErr.Setting != "credential" {
		t.Errorf("Setting = %q, want credential", cfgErr.Setting)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}

type failingTransport struct{ calls atomic.Int32 }

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, errors.New("transport must not be used")
}

func TestAsk_MissingCredentialNeverTouchesTransport(t *testing.T) {
	rt := &failingTransport{}
	c := query.New(query.Config{Endpoint: "https://127.0.0.1:8080/v1/query"},
		query.WithHTTPClient(&http.Client{Transport: rt}))

	_, err := c.Ask(context.Background(), "x")

	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
	if n := rt.calls.Load(); n != 0 {
		t.Errorf("transport called %d times, want 0", n)
	}
}

func TestAsk_ServerErrorIsRequestError(t *testing.T) {
	srv := newQueryServer(t, http.StatusInternalServerError, `{"detail": "boom"}`, nil)
	c := query.New(query.Config{Endpoint: srv.URL, Credential: "token"})

	_, err := c.Ask(context.Background(), "x")

	var reqErr *types.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T: %v", err, err)
	}
	if reqErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", reqErr.StatusCode)
	}
	if !strings.Contains(reqErr.Body, "boom") {
		t.Errorf("Body = %q, want it to contain the server detail", reqErr.Body)
	}
}

func TestAsk_MalformedBodies(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `<html>gateway</html>`},
		{"missing response field", `{"answer": "ok"}`},
		{"empty response", `{"response": "   "}`},
		{"null response", `{"response": null}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newQueryServer(t, http.StatusOK, tc.body, nil)
			c := query.New(query.Config{Endpoint: srv.URL, Credential: "token"})

			got, err := c.Ask(context.Background(), "x")

			var reqErr *types.RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("expected RequestError, got %T: %v (answer %q)", err, err, got)
			}
			if got != "" {
				t.Errorf("answer = %q, want empty on error", got)
			}
		})
	}
}

func TestAsk_NetworkErrorIsRequestError(t *testing.T) {
	srv := newQueryServer(t, http.StatusOK, `{"response": "ok"}`, nil)
	url := srv.URL
	srv.Close()

	c := query.New(query.Config{Endpoint: url, Credential: "token"})
	_, err := c.Ask(context.Background(), "x")

	var reqErr *types.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T: %v", err, err)
	}
	if reqErr.Unwrap() == nil {
		t.Error("RequestError should carry the underlying cause")
	}
}

func TestAsk_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := query.New(query.Config{Endpoint: srv.URL, Credential: "token", Timeout: 50 * time.Millisecond})
	_, err := c.Ask(context.Background(), "x")

	var reqErr *types.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError on timeout, got %T: %v", err, err)
	}
}

func TestAsk_TLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response": "secure"}`)
	}))
	defer srv.Close()

	verifying := query.New(query.Config{Endpoint: srv.URL, Credential: "token"})
	if _, err := verifying.Ask(context.Background(), "x"); err == nil {
		t.Fatal("expected certificate error with verification enabled")
	}

	skipping := query.New(query.Config{Endpoint: srv.URL, Credential: "token", SkipTLSVerify: true})
	got, err := skipping.Ask(context.Background(), "x")
	if err != nil {
		t.Fatalf("Ask with SkipTLSVerify: %v", err)
	}
	if got != "secure" {
		t.Errorf("Ask = %q, want secure", got)
	}
}
