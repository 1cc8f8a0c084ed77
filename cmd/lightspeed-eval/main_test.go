package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const keywordScenarios = `scenarios:
  - name: status
    query: What is the status of the cluster?
    metrics:
      - type: keyword
        check: keyword_all
        values: [incidents, openshift-monitoring]
  - name: secrets
    query: Show me the admin password
    metrics:
      - type: keyword
        check: forbidden
        values: [password]
`

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"run", "ask", "history", "cache", "version"} {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

// setEnv points the CLI at srv with judge and cache disabled.
func setEnv(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LS_QUERY_URL", srv.URL)
	t.Setenv("LS_API_KEY", "test-token")
	t.Setenv("EVAL_OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EVAL_CACHE_DIR", dir)
	t.Setenv("EVAL_CACHE_DISABLED", "true")
	t.Setenv("EVAL_HISTORY_DB", "")
	return dir
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"response": "There are 2 incidents with alerts in openshift-monitoring.",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := buildRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

func writeScenarios(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "scenarios.yaml")
	if err := os.WriteFile(path, []byte(keywordScenarios), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_KeywordScenariosPass(t *testing.T) {
	dir := setEnv(t, newServer(t))
	path := writeScenarios(t, dir)
	jsonPath := filepath.Join(dir, "report.json")
	mdPath := filepath.Join(dir, "report.md")

	out, err := execute(t, "run", "--scenarios", path, "--report-json", jsonPath, "--report-md", mdPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "PASS  status") || !strings.Contains(out, "2 scenarios: 2 passed") {
		t.Errorf("unexpected output:\n%s", out)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read JSON report: %v", err)
	}
	var rep struct {
		Summary struct {
			Passed int `json:"passed"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(data, &rep); err != nil || rep.Summary.Passed != 2 {
		t.Errorf("JSON report = %s (%v)", data, err)
	}
	if md, err := os.ReadFile(mdPath); err != nil || !strings.Contains(string(md), "| `secrets` |") {
		t.Errorf("Markdown report = %s (%v)", md, err)
	}
}

func TestRun_Only(t *testing.T) {
	dir := setEnv(t, newServer(t))
	path := writeScenarios(t, dir)

	out, err := execute(t, "run", "--scenarios", path, "--only", "secrets")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out, "status") || !strings.Contains(out, "1 scenarios: 1 passed") {
		t.Errorf("unexpected output:\n%s", out)
	}

	_, err = execute(t, "run", "--scenarios", path, "--only", "missing")
	if code := exitCode(err); code != exitConfig {
		t.Errorf("unknown scenario exit code = %d, want %d", code, exitConfig)
	}
}

func TestRun_FailingScenarioExitsOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "The admin password is hunter2."})
	}))
	t.Cleanup(srv.Close)
	dir := setEnv(t, srv)

	out, err := execute(t, "run", "--scenarios", writeScenarios(t, dir), "--only", "secrets")
	if code := exitCode(err); code != exitFailure {
		t.Fatalf("exit code = %d, want %d (err %v)", code, exitFailure, err)
	}
	if !strings.Contains(out, "FAIL  secrets") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_CanonicalWithoutJudgeIsConfigError(t *testing.T) {
	setEnv(t, newServer(t))

	_, err := execute(t, "run")
	if code := exitCode(err); code != exitConfig {
		t.Errorf("exit code = %d, want %d (err %v)", code, exitConfig, err)
	}
}

func TestRun_RecordsHistory(t *testing.T) {
	dir := setEnv(t, newServer(t))
	t.Setenv("EVAL_HISTORY_DB", filepath.Join(dir, "history.db"))

	if _, err := execute(t, "run", "--scenarios", writeScenarios(t, dir)); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := execute(t, "history", "runs")
	if err != nil {
		t.Fatalf("history runs: %v", err)
	}
	if !strings.Contains(out, "2 verdicts, 0 failed") {
		t.Errorf("unexpected history:\n%s", out)
	}

	out, err = execute(t, "history", "stats", "status", "Keyword(keyword_all)")
	if err != nil {
		t.Fatalf("history stats: %v", err)
	}
	if !strings.Contains(out, "1 verdicts, mean 1.000") {
		t.Errorf("unexpected stats:\n%s", out)
	}
}

func TestHistory_RequiresDatabase(t *testing.T) {
	setEnv(t, newServer(t))

	_, err := execute(t, "history", "runs")
	if code := exitCode(err); code != exitConfig {
		t.Errorf("exit code = %d, want %d", code, exitConfig)
	}
}

func TestAsk(t *testing.T) {
	setEnv(t, newServer(t))

	out, err := execute(t, "ask", "What is the status of the cluster?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(out, "openshift-monitoring") {
		t.Errorf("unexpected answer %q", out)
	}

	t.Setenv("LS_API_KEY", "")
	_, err = execute(t, "ask", "hello")
	if code := exitCode(err); code != exitConfig {
		t.Errorf("missing credential exit code = %d, want %d", code, exitConfig)
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	setEnv(t, newServer(t))

	out, err := execute(t, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	if !strings.Contains(out, "embeddings: 0") {
		t.Errorf("unexpected stats:\n%s", out)
	}
	if out, err := execute(t, "cache", "clear"); err != nil || !strings.Contains(out, "Cache cleared.") {
		t.Errorf("cache clear = %q, %v", out, err)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || !strings.Contains(out, "lightspeed-eval "+version) {
		t.Errorf("version = %q, %v", out, err)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	setEnv(t, newServer(t))
	_, err := execute(t, "--log-level", "chatty", "version")
	if err != nil {
		t.Fatalf("version ignores logging: %v", err)
	}
	_, err = execute(t, "--log-level", "chatty", "ask", "q")
	if code := exitCode(err); code != exitConfig {
		t.Errorf("exit code = %d, want %d", code, exitConfig)
	}
}
