package snapshot

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ciWorkflow = "name: CI\non: [push, pull_request]\njobs:\n  test:\n    steps:\n      - run: go test ./...\n"

func newGitHubServer(t *testing.T, protection http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/svc", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name":"svc","default_branch":"main",
			"delete_branch_on_merge":true,"allow_squash_merge":true}`)
	})
	mux.HandleFunc("/repos/acme/svc/branches", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"name":"old","protected":false}]`)
			return
		}
		base := "http://" + r.Host + r.URL.Path
		w.Header().Set("Link", fmt.Sprintf(`<%s?page=2&per_page=100>; rel="next"`, base))
		fmt.Fprint(w, `[{"name":"main","protected":true}]`)
	})
	mux.HandleFunc("/repos/acme/svc/branches/main", branchHandler("2026-02-01T00:00:00Z"))
	mux.HandleFunc("/repos/acme/svc/branches/old", branchHandler("2025-11-01T00:00:00Z"))
	mux.HandleFunc("/repos/acme/svc/branches/main/protection", protection)
	mux.HandleFunc("/repos/acme/svc/actions/workflows", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total_count":2,"workflows":[
			{"name":"CI","path":".github/workflows/ci.yml","state":"active"},
			{"name":"Gone","path":".github/workflows/gone.yml","state":"disabled_manually"}]}`)
	})
	mux.HandleFunc("/repos/acme/svc/contents/.github/workflows/ci.yml", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		fmt.Fprintf(w, `{"type":"file","encoding":"base64","path":".github/workflows/ci.yml","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte(ciWorkflow)))
	})
	mux.HandleFunc("/repos/acme/svc/contents/.github/workflows/gone.yml", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	mux.HandleFunc("/repos/acme/svc/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		fmt.Fprint(w, `{"sha":"abc","truncated":false,"tree":[
			{"path":"go.mod","type":"blob"},
			{"path":"pkg","type":"tree"},
			{"path":"pkg/a_test.go","type":"blob"}]}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func branchHandler(date string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"name":"b","commit":{"sha":"x","commit":{"committer":{"date":%q}}}}`, date)
	}
}

func protectedMain(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, `{
		"required_status_checks":{"strict":true,"contexts":["build","lint"]},
		"required_pull_request_reviews":{"dismiss_stale_reviews":true,
			"require_code_owner_reviews":false,"required_approving_review_count":2},
		"enforce_admins":{"enabled":true},
		"allow_force_pushes":{"enabled":false},
		"required_linear_history":{"enabled":true}}`)
}

func newProvider(t *testing.T, server *httptest.Server) *GitHub {
	t.Helper()
	g, err := NewGitHub(server.Client(), server.URL, nil)
	require.NoError(t, err)
	g.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return g
}

func TestGitHub_Load(t *testing.T) {
	server := newGitHubServer(t, protectedMain)
	g := newProvider(t, server)

	s, err := g.Load(context.Background(), Target{
		Owner: "acme", Name: "svc", Product: "Service",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme/svc", s.ID())
	assert.Equal(t, "Service", s.Product())
	assert.Equal(t, "main", s.DefaultBranch)
	assert.True(t, s.Settings.DeleteBranchOnMerge)
	assert.True(t, s.Settings.AllowSquashMerge)

	require.Len(t, s.Branches, 2)
	assert.True(t, s.Branches[0].Protected)
	assert.Equal(t, "old", s.Branches[1].Name)
	assert.Equal(t, 2025, s.Branches[1].LastCommit.Year())
	assert.Len(t, s.StaleBranches(7*24*time.Hour), 1)

	p, ok, err := s.ProtectionFor("main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.EnforceAdmins)
	assert.True(t, p.RequireLinearHistory)
	assert.False(t, p.AllowForcePushes)
	require.NotNil(t, p.Reviews)
	assert.Equal(t, 2, p.Reviews.RequiredApprovals)
	assert.True(t, p.Reviews.DismissStale)
	require.NotNil(t, p.StatusChecks)
	assert.Equal(t, []string{"build", "lint"}, p.StatusChecks.Contexts)

	require.Len(t, s.Workflows, 2)
	assert.Equal(t, ciWorkflow, s.Workflows[0].Content)
	assert.Empty(t, s.Workflows[1].Content)
	assert.False(t, s.Workflows[1].Active())

	assert.Equal(t, []string{"go.mod", "pkg/a_test.go"}, s.Files)
}

func TestGitHub_UnprotectedBranch(t *testing.T) {
	server := newGitHubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Branch not protected"}`)
	})

	s, err := newProvider(t, server).Load(context.Background(),
		Target{Owner: "acme", Name: "svc"})
	require.NoError(t, err)
	_, ok, err := s.ProtectionFor("main")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGitHub_ProtectionForbidden(t *testing.T) {
	server := newGitHubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"Resource not accessible by integration"}`)
	})

	s, err := newProvider(t, server).Load(context.Background(),
		Target{Owner: "acme", Name: "svc"})
	require.NoError(t, err)
	_, _, err = s.ProtectionFor("main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestGitHub_RepositoryNotFound(t *testing.T) {
	server := newGitHubServer(t, protectedMain)
	_, err := newProvider(t, server).Load(context.Background(),
		Target{Owner: "acme", Name: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get repository")
}

func TestNewGitHub_InvalidURL(t *testing.T) {
	_, err := NewGitHub(nil, "://bad", nil)
	assert.Error(t, err)
}
