package snapshot

import (
	"context"
	"fmt"
	"strings"
)

// Target names the repository to load and the product it
// belongs to.
type Target struct {
	Owner     string
	Name      string
	ProductID string
	Product   string
}

// ParseTarget parses "owner/name".
func ParseTarget(s string) (Target, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Target{}, fmt.Errorf(
			"invalid repository %q, expected owner/name", s,
		)
	}
	return Target{Owner: owner, Name: name}, nil
}

// String returns "owner/name".
func (t Target) String() string { return t.Owner + "/" + t.Name }

// Provider loads a Snapshot.
type Provider interface {
	Load(ctx context.Context, target Target) (*Snapshot, error)
}

// applyTarget fills product identity from target, falling back
// to the repository itself.
func applyTarget(s *Snapshot, t Target) {
	if t.Owner != "" {
		s.Owner = t.Owner
	}
	if t.Name != "" {
		s.Name = t.Name
	}
	if t.ProductID != "" {
		s.ProductID = t.ProductID
	}
	if t.Product != "" {
		s.ProductName = t.Product
	}
	if s.ProductID == "" {
		s.ProductID = s.Repo()
	}
	if s.ProductName == "" {
		s.ProductName = s.Name
	}
}
