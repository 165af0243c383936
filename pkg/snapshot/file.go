package snapshot

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File loads snapshots from a YAML fixture. It lets audits run
// offline and rules be tested against recorded state.
type File struct {
	path string
	now  func() time.Time
}

// NewFile creates a provider reading the fixture at path.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// Load reads the fixture. Non-empty fields of target override
// the fixture's owner, name and product.
func (f *File) Load(ctx context.Context, target Target) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return Decode(data, target, f.now)
}

// Decode parses a YAML snapshot.
func Decode(data []byte, target Target, now func() time.Time) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	applyTarget(&s, target)
	if s.Owner == "" || s.Name == "" {
		return nil, fmt.Errorf("snapshot has no owner/name")
	}
	if s.DefaultBranch == "" {
		return nil, fmt.Errorf("snapshot %s has no default branch", s.Repo())
	}
	if s.LoadedAt.IsZero() {
		s.LoadedAt = now()
	}
	return &s, nil
}

// Encode renders s as YAML, the format read by File.
func Encode(s *Snapshot) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}
