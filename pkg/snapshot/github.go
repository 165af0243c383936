package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v60/github"

	"digital.vasic.repoaudit/pkg/logging"
)

// GitHub loads snapshots through the GitHub REST API.
type GitHub struct {
	client *gh.Client
	logger logging.Logger
	now    func() time.Time
}

// NewGitHub creates a provider using httpClient, which carries
// authentication. An empty baseURL targets api.github.com; for
// GitHub Enterprise pass the API root, e.g.
// https://github.example.com/api/v3/.
func NewGitHub(
	httpClient *http.Client, baseURL string, logger logging.Logger,
) (*GitHub, error) {
	client := gh.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = u
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &GitHub{client: client, logger: logger, now: time.Now}, nil
}

// Load reads repository settings, branches, the protection of
// the default branch, workflows with their content and the file
// index of the default branch.
func (g *GitHub) Load(ctx context.Context, target Target) (*Snapshot, error) {
	owner, name := target.Owner, target.Name
	log := g.logger.WithFields(logging.StringField("repo", target.String()))

	repo, _, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	s := &Snapshot{
		Owner:         owner,
		Name:          name,
		DefaultBranch: repo.GetDefaultBranch(),
		Settings: Settings{
			Archived:            repo.GetArchived(),
			AllowMergeCommit:    repo.GetAllowMergeCommit(),
			AllowSquashMerge:    repo.GetAllowSquashMerge(),
			AllowRebaseMerge:    repo.GetAllowRebaseMerge(),
			DeleteBranchOnMerge: repo.GetDeleteBranchOnMerge(),
		},
		Protections:      make(map[string]Protection),
		ProtectionErrors: make(map[string]string),
		LoadedAt:         g.now(),
	}
	applyTarget(s, target)

	if s.Branches, err = g.branches(ctx, owner, name); err != nil {
		return nil, err
	}
	log.Debug("branches loaded", logging.IntField("count", len(s.Branches)))

	if s.DefaultBranch != "" {
		p, ok, err := g.protection(ctx, owner, name, s.DefaultBranch)
		switch {
		case err != nil:
			log.Warn("branch protection unavailable",
				logging.StringField("branch", s.DefaultBranch),
				logging.ErrorField(err))
			s.ProtectionErrors[s.DefaultBranch] = err.Error()
		case ok:
			s.Protections[s.DefaultBranch] = p
		}
	}

	if s.Workflows, err = g.workflows(ctx, owner, name, s.DefaultBranch); err != nil {
		return nil, err
	}
	log.Debug("workflows loaded", logging.IntField("count", len(s.Workflows)))

	if s.Files, err = g.files(ctx, owner, name, s.DefaultBranch); err != nil {
		return nil, err
	}
	log.Debug("file index loaded", logging.IntField("count", len(s.Files)))
	return s, nil
}

func (g *GitHub) branches(ctx context.Context, owner, name string) ([]Branch, error) {
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	var out []Branch
	for {
		page, resp, err := g.client.Repositories.ListBranches(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches: %w", err)
		}
		for _, b := range page {
			out = append(out, Branch{
				Name:      b.GetName(),
				Protected: b.GetProtected(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	for i := range out {
		b, _, err := g.client.Repositories.GetBranch(ctx, owner, name, out[i].Name, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to get branch %s: %w", out[i].Name, err)
		}
		out[i].LastCommit = b.GetCommit().GetCommit().GetCommitter().GetDate().Time
	}
	return out, nil
}

type enabledSetting struct {
	Enabled bool `json:"enabled"`
}

type branchProtection struct {
	RequiredStatusChecks *struct {
		Strict   bool     `json:"strict"`
		Contexts []string `json:"contexts"`
	} `json:"required_status_checks"`
	RequiredPullRequestReviews *struct {
		DismissStaleReviews          bool `json:"dismiss_stale_reviews"`
		RequireCodeOwnerReviews      bool `json:"require_code_owner_reviews"`
		RequiredApprovingReviewCount int  `json:"required_approving_review_count"`
	} `json:"required_pull_request_reviews"`
	EnforceAdmins         *enabledSetting `json:"enforce_admins"`
	AllowForcePushes      *enabledSetting `json:"allow_force_pushes"`
	RequiredLinearHistory *enabledSetting `json:"required_linear_history"`
}

// protection returns ok=false for an unprotected branch.
func (g *GitHub) protection(
	ctx context.Context, owner, name, branch string,
) (Protection, bool, error) {
	u := fmt.Sprintf("repos/%s/%s/branches/%s/protection",
		owner, name, url.PathEscape(branch))
	req, err := g.client.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return Protection{}, false, err
	}

	var raw branchProtection
	if _, err := g.client.Do(ctx, req, &raw); err != nil {
		var errResp *gh.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil &&
			errResp.Response.StatusCode == http.StatusNotFound {
			return Protection{}, false, nil
		}
		return Protection{}, false, err
	}

	p := Protection{
		EnforceAdmins:        raw.EnforceAdmins != nil && raw.EnforceAdmins.Enabled,
		AllowForcePushes:     raw.AllowForcePushes != nil && raw.AllowForcePushes.Enabled,
		RequireLinearHistory: raw.RequiredLinearHistory != nil && raw.RequiredLinearHistory.Enabled,
	}
	if r := raw.RequiredPullRequestReviews; r != nil {
		p.Reviews = &ReviewPolicy{
			RequiredApprovals: r.RequiredApprovingReviewCount,
			DismissStale:      r.DismissStaleReviews,
			RequireCodeOwners: r.RequireCodeOwnerReviews,
		}
	}
	if c := raw.RequiredStatusChecks; c != nil {
		p.StatusChecks = &StatusChecks{Strict: c.Strict, Contexts: c.Contexts}
	}
	return p, true, nil
}

func (g *GitHub) workflows(
	ctx context.Context, owner, name, ref string,
) ([]Workflow, error) {
	opts := &gh.ListOptions{PerPage: 100}
	var out []Workflow
	for {
		page, resp, err := g.client.Actions.ListWorkflows(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list workflows: %w", err)
		}
		for _, w := range page.Workflows {
			wf := Workflow{Name: w.GetName(), Path: w.GetPath(), State: w.GetState()}
			content, err := g.content(ctx, owner, name, wf.Path, ref)
			if err != nil {
				return nil, err
			}
			wf.Content = content
			out = append(out, wf)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// content returns "" for a file missing on ref, which happens
// for workflows that only live on other branches.
func (g *GitHub) content(
	ctx context.Context, owner, name, path, ref string,
) (string, error) {
	file, _, _, err := g.client.Repositories.GetContents(
		ctx, owner, name, path, &gh.RepositoryContentGetOptions{Ref: ref},
	)
	if err != nil {
		var errResp *gh.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil &&
			errResp.Response.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to get %s: %w", path, err)
	}
	if file == nil {
		return "", nil
	}
	text, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return text, nil
}

func (g *GitHub) files(
	ctx context.Context, owner, name, ref string,
) ([]string, error) {
	if ref == "" {
		return nil, nil
	}
	tree, _, err := g.client.Git.GetTree(ctx, owner, name, ref, true)
	if err != nil {
		var errResp *gh.ErrorResponse
		// An empty repository has no tree.
		if errors.As(err, &errResp) && errResp.Response != nil &&
			errResp.Response.StatusCode == http.StatusConflict {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get file tree: %w", err)
	}
	if tree.GetTruncated() {
		g.logger.Warn("file tree truncated by the API",
			logging.StringField("repo", owner+"/"+name))
	}
	var out []string
	for _, e := range tree.Entries {
		if e.GetType() == "blob" {
			out = append(out, e.GetPath())
		}
	}
	return out, nil
}
