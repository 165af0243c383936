package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// WorkflowSpec is the part of a workflow file the rules read.
type WorkflowSpec struct {
	Name string         `yaml:"name"`
	On   Triggers       `yaml:"on"`
	Jobs map[string]Job `yaml:"jobs"`
}

// Job is one workflow job.
type Job struct {
	Name        string `yaml:"name"`
	Environment any    `yaml:"environment"`
	Steps       []Step `yaml:"steps"`
}

// Step is one job step.
type Step struct {
	Name string `yaml:"name"`
	Uses string `yaml:"uses"`
	Run  string `yaml:"run"`
}

// Trigger is the filter of one triggering event.
type Trigger struct {
	Branches []string `yaml:"branches"`
	Tags     []string `yaml:"tags"`
}

// Triggers maps event names to their filters. The "on" key of a
// workflow may be a single event, a list of events or a map of
// events to filters; all three decode into Triggers.
type Triggers map[string]Trigger

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Triggers) UnmarshalYAML(node *yaml.Node) error {
	out := Triggers{}
	switch node.Kind {
	case yaml.ScalarNode:
		out[node.Value] = Trigger{}
	case yaml.SequenceNode:
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: event must be a name", n.Line)
			}
			out[n.Value] = Trigger{}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			var tr Trigger
			if value.Kind == yaml.MappingNode {
				if err := value.Decode(&tr); err != nil {
					return fmt.Errorf("event %s: %w", key.Value, err)
				}
			}
			out[key.Value] = tr
		}
	default:
		return fmt.Errorf("line %d: unsupported trigger", node.Line)
	}
	*t = out
	return nil
}

// Parse decodes the workflow content.
func (w Workflow) Parse() (*WorkflowSpec, error) {
	var spec WorkflowSpec
	if err := yaml.Unmarshal([]byte(w.Content), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", w.Path, err)
	}
	return &spec, nil
}

// Active reports whether the workflow is enabled.
func (w Workflow) Active() bool {
	return w.State == "" || w.State == WorkflowActive
}

// TriggeredBy reports whether event triggers the workflow.
func (s *WorkflowSpec) TriggeredBy(event string) bool {
	_, ok := s.On[event]
	return ok
}

// Events returns the triggering events, sorted.
func (s *WorkflowSpec) Events() []string {
	out := make([]string, 0, len(s.On))
	for e := range s.On {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// RunsOnBranch reports whether event fires for pushes or pull
// requests on branch. An event without a branch filter fires
// for every branch.
func (s *WorkflowSpec) RunsOnBranch(event, branch string) bool {
	tr, ok := s.On[event]
	if !ok {
		return false
	}
	if len(tr.Branches) == 0 {
		return true
	}
	for _, b := range tr.Branches {
		if b == branch || b == "**" || b == "*" {
			return true
		}
	}
	return false
}

// Commands returns every "run" line of every step, in job name
// order.
func (s *WorkflowSpec) Commands() []string {
	var out []string
	s.eachStep(func(st Step) {
		for _, line := range strings.Split(st.Run, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	})
	return out
}

// Actions returns the "uses" reference of every step.
func (s *WorkflowSpec) Actions() []string {
	var out []string
	s.eachStep(func(st Step) {
		if st.Uses != "" {
			out = append(out, st.Uses)
		}
	})
	return out
}

// HasEnvironment reports whether any job deploys to a named
// environment.
func (s *WorkflowSpec) HasEnvironment() bool {
	for _, j := range s.Jobs {
		if j.Environment != nil {
			return true
		}
	}
	return false
}

func (s *WorkflowSpec) eachStep(fn func(Step)) {
	names := make([]string, 0, len(s.Jobs))
	for n := range s.Jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		for _, st := range s.Jobs[n].Steps {
			fn(st)
		}
	}
}
