// Package snapshot models the repository state an audit runs
// against and loads it from a hosting API or a fixture file.
package snapshot

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Snapshot is an immutable picture of one repository, taken
// once per run. Checks read it and never change it.
type Snapshot struct {
	ProductID     string                `yaml:"product_id" json:"product_id"`
	ProductName   string                `yaml:"product" json:"product"`
	Owner         string                `yaml:"owner" json:"owner"`
	Name          string                `yaml:"name" json:"name"`
	DefaultBranch string                `yaml:"default_branch" json:"default_branch"`
	Settings      Settings              `yaml:"settings" json:"settings"`
	Branches      []Branch              `yaml:"branches" json:"branches"`
	Protections   map[string]Protection `yaml:"protections" json:"protections"`
	Workflows     []Workflow            `yaml:"workflows" json:"workflows"`
	Files         []string              `yaml:"files" json:"files"`
	LoadedAt      time.Time             `yaml:"loaded_at" json:"loaded_at"`

	// Branch protection lookups that failed, by branch name.
	ProtectionErrors map[string]string `yaml:"protection_errors,omitempty" json:"protection_errors,omitempty"`
}

// Settings holds repository level settings.
type Settings struct {
	Archived            bool `yaml:"archived" json:"archived"`
	AllowMergeCommit    bool `yaml:"allow_merge_commit" json:"allow_merge_commit"`
	AllowSquashMerge    bool `yaml:"allow_squash_merge" json:"allow_squash_merge"`
	AllowRebaseMerge    bool `yaml:"allow_rebase_merge" json:"allow_rebase_merge"`
	DeleteBranchOnMerge bool `yaml:"delete_branch_on_merge" json:"delete_branch_on_merge"`
}

// Branch is one branch and the time of its last commit.
type Branch struct {
	Name       string    `yaml:"name" json:"name"`
	Protected  bool      `yaml:"protected" json:"protected"`
	LastCommit time.Time `yaml:"last_commit" json:"last_commit"`
}

// Protection is the protection policy of one branch.
type Protection struct {
	Reviews              *ReviewPolicy `yaml:"reviews" json:"reviews,omitempty"`
	StatusChecks         *StatusChecks `yaml:"status_checks" json:"status_checks,omitempty"`
	EnforceAdmins        bool          `yaml:"enforce_admins" json:"enforce_admins"`
	AllowForcePushes     bool          `yaml:"allow_force_pushes" json:"allow_force_pushes"`
	RequireLinearHistory bool          `yaml:"require_linear_history" json:"require_linear_history"`
}

// ReviewPolicy is the pull request review requirement of a
// protected branch.
type ReviewPolicy struct {
	RequiredApprovals int  `yaml:"required_approvals" json:"required_approvals"`
	DismissStale      bool `yaml:"dismiss_stale" json:"dismiss_stale"`
	RequireCodeOwners bool `yaml:"require_code_owners" json:"require_code_owners"`
}

// StatusChecks lists the checks that must pass before merging.
type StatusChecks struct {
	Strict   bool     `yaml:"strict" json:"strict"`
	Contexts []string `yaml:"contexts" json:"contexts"`
}

// Workflow is one CI workflow definition.
type Workflow struct {
	Name    string `yaml:"name" json:"name"`
	Path    string `yaml:"path" json:"path"`
	State   string `yaml:"state" json:"state"`
	Content string `yaml:"content" json:"content,omitempty"`
}

// WorkflowActive is the state of an enabled workflow.
const WorkflowActive = "active"

// ID returns the product identifier.
func (s *Snapshot) ID() string { return s.ProductID }

// Product returns the product display name.
func (s *Snapshot) Product() string { return s.ProductName }

// Repo returns "owner/name", or "" when unknown.
func (s *Snapshot) Repo() string {
	if s.Owner == "" || s.Name == "" {
		return ""
	}
	return s.Owner + "/" + s.Name
}

// Branch returns the branch called name.
func (s *Snapshot) Branch(name string) (Branch, bool) {
	for _, b := range s.Branches {
		if b.Name == name {
			return b, true
		}
	}
	return Branch{}, false
}

// ProtectionFor returns the protection of branch. ok is false
// for an unprotected branch. err is set when the protection
// could not be read.
func (s *Snapshot) ProtectionFor(branch string) (p Protection, ok bool, err error) {
	if msg, failed := s.ProtectionErrors[branch]; failed {
		return Protection{}, false, fmt.Errorf(
			"branch protection of %s unavailable: %s", branch, msg,
		)
	}
	p, ok = s.Protections[branch]
	return p, ok, nil
}

// HasFile reports whether the repository contains path.
func (s *Snapshot) HasFile(p string) bool {
	for _, f := range s.Files {
		if f == p {
			return true
		}
	}
	return false
}

// MatchFiles returns the files whose base name matches the
// path.Match pattern.
func (s *Snapshot) MatchFiles(pattern string) []string {
	var out []string
	for _, f := range s.Files {
		if ok, _ := path.Match(pattern, path.Base(f)); ok {
			out = append(out, f)
		}
	}
	return out
}

// FilesUnder returns the files inside dir.
func (s *Snapshot) FilesUnder(dir string) []string {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for _, f := range s.Files {
		if strings.HasPrefix(f, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// StaleBranches returns the branches other than the default
// whose last commit is older than maxAge at the time the
// snapshot was loaded.
func (s *Snapshot) StaleBranches(maxAge time.Duration) []Branch {
	var out []Branch
	for _, b := range s.Branches {
		if b.Name == s.DefaultBranch || b.LastCommit.IsZero() {
			continue
		}
		if s.LoadedAt.Sub(b.LastCommit) > maxAge {
			out = append(out, b)
		}
	}
	return out
}
