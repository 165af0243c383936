package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const svcWorkflow = "name: CI\non: [push, pull_request]\njobs:\n  test:\n    steps:\n      - run: go test -cover ./...\n"

// fakeGitHub serves the endpoints read by the GitHub provider
// for acme/svc and records the Authorization headers it sees.
type fakeGitHub struct {
	mu    sync.Mutex
	auths []string
}

func (f *fakeGitHub) serve(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	json := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.auths = append(f.auths, r.Header.Get("Authorization"))
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/repos/acme/svc", json(`{"name":"svc","default_branch":"main","delete_branch_on_merge":true}`))
	mux.HandleFunc("/repos/acme/svc/branches", json(`[{"name":"main","protected":true}]`))
	mux.HandleFunc("/repos/acme/svc/branches/main",
		json(`{"name":"main","commit":{"sha":"x","commit":{"committer":{"date":"2026-02-01T00:00:00Z"}}}}`))
	mux.HandleFunc("/repos/acme/svc/branches/main/protection", json(`{
		"required_status_checks":{"strict":true,"contexts":["test"]},
		"required_pull_request_reviews":{"dismiss_stale_reviews":true,"required_approving_review_count":1},
		"enforce_admins":{"enabled":true},
		"required_linear_history":{"enabled":true}}`))
	mux.HandleFunc("/repos/acme/svc/actions/workflows",
		json(`{"total_count":1,"workflows":[{"name":"CI","path":".github/workflows/ci.yml","state":"active"}]}`))
	mux.HandleFunc("/repos/acme/svc/contents/.github/workflows/ci.yml",
		json(fmt.Sprintf(`{"type":"file","encoding":"base64","path":".github/workflows/ci.yml","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte(svcWorkflow)))))
	mux.HandleFunc("/repos/acme/svc/git/trees/main", json(`{"sha":"abc","truncated":false,"tree":[
		{"path":"CODEOWNERS","type":"blob"},
		{"path":"svc_test.go","type":"blob"}]}`))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSnapshot_RecordThenAudit(t *testing.T) {
	gh := &fakeGitHub{}
	server := gh.serve(t)
	out := filepath.Join(t.TempDir(), "svc.yaml")

	_, _, err := runCLIWithEnv(t, map[string]string{"GITHUB_TOKEN": "ghp_0123456789abcdef"},
		"snapshot", "acme/svc", "--api-url", server.URL, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_branch: main")
	assert.Contains(t, string(data), "svc_test.go")
	for _, auth := range gh.auths {
		assert.Equal(t, "Bearer ghp_0123456789abcdef", auth)
	}

	stdout, _, err := runCLI(t, "check", "--snapshot", out)
	var verdictErr *VerdictError
	require.True(t, errors.As(err, &verdictErr), "no deployment workflow fails the run")
	assert.Contains(t, stdout, "✗ no deployment workflow found")
	assert.Contains(t, stdout, "✓ Builds On Push")
}

func TestCheck_GitHubProvider(t *testing.T) {
	server := (&fakeGitHub{}).serve(t)
	stdout, stderr, err := runCLI(t, "check", "acme/svc", "--api-url", server.URL, "--rule", "reviewing")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Approving Review")
	assert.Contains(t, stderr, "no GitHub token set")
}

func TestSnapshot_Stdout(t *testing.T) {
	server := (&fakeGitHub{}).serve(t)
	stdout, _, err := runCLI(t, "snapshot", "acme/svc", "--api-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "owner: acme")
}
