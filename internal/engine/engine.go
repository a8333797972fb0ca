// Package engine wires the extraction pipeline together: extract
// resource records, classify the provider, resolve dependency edges,
// build the grouping tree, and assemble the validated Architecture.
//
// One blocking call per document, no shared mutable state: separate
// documents may be processed concurrently by separate calls.
package engine

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"terraform-archviz/internal/classify"
	"terraform-archviz/internal/deps"
	"terraform-archviz/internal/group"
	"terraform-archviz/internal/state"
	"terraform-archviz/pkg/arch"
	archerrors "terraform-archviz/pkg/errors"
)

// Engine runs the state-to-graph pipeline. The rule tables are fixed at
// construction; a zero-configuration engine uses the built-in rules.
type Engine struct {
	classifyRules []classify.Rule
	groupRules    map[arch.Provider]group.RuleSet
}

// New creates an engine with the default provider and grouping rules.
func New() *Engine {
	return &Engine{
		classifyRules: classify.DefaultRules(),
		groupRules:    group.DefaultRuleSets(),
	}
}

// WithClassifyRules overrides the provider detection rule table.
func (e *Engine) WithClassifyRules(rules []classify.Rule) *Engine {
	e.classifyRules = rules
	return e
}

// WithGroupRules overrides the grouping rule sets.
func (e *Engine) WithGroupRules(rules map[arch.Provider]group.RuleSet) *Engine {
	e.groupRules = rules
	return e
}

// ParseFile parses a state file from disk.
func (e *Engine) ParseFile(path string) (*arch.Architecture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return e.Parse(data)
}

// Parse runs the full pipeline over one state document. On error no
// partial Architecture is returned.
func (e *Engine) Parse(data []byte) (*arch.Architecture, error) {
	doc, err := state.Extract(data)
	if err != nil {
		return nil, err
	}

	provider := classify.Detect(doc.Resources, e.classifyRules)
	edges := deps.Resolve(doc.Resources)
	groups := group.Build(doc.Resources, edges, provider, e.groupRules)

	a := &arch.Architecture{
		RunID:            uuid.New(),
		Provider:         provider,
		StateVersion:     doc.StateVersion,
		TerraformVersion: doc.TerraformVersion,
		Resources:        doc.Resources,
		Edges:            edges,
		Groups:           groups,
	}

	if err := validate(a); err != nil {
		return nil, err
	}
	return a, nil
}

// validate checks the assembled graph's invariants. A violation here is
// an engine bug, never an input problem.
func validate(a *arch.Architecture) error {
	addresses := make(map[string]bool, len(a.Resources))
	for _, r := range a.Resources {
		if addresses[r.Address] {
			return &archerrors.GraphConsistencyError{
				Reason: fmt.Sprintf("resource address %q appears twice", r.Address),
			}
		}
		addresses[r.Address] = true
	}

	for _, e := range a.Edges {
		if !addresses[e.From] {
			return &archerrors.GraphConsistencyError{
				Reason: fmt.Sprintf("edge source %q is not a known resource", e.From),
			}
		}
		if !addresses[e.To] {
			return &archerrors.GraphConsistencyError{
				Reason: fmt.Sprintf("edge target %q is not a known resource", e.To),
			}
		}
	}

	if a.Groups == nil {
		return &archerrors.GraphConsistencyError{Reason: "grouping tree is missing"}
	}
	grouped := make(map[string]int, len(a.Resources))
	for _, addr := range a.Groups.AllMembers() {
		grouped[addr]++
	}
	for addr := range addresses {
		switch grouped[addr] {
		case 0:
			return &archerrors.GraphConsistencyError{
				Reason: fmt.Sprintf("resource %q missing from grouping tree", addr),
			}
		case 1:
			// exactly one placement, as required
		default:
			return &archerrors.GraphConsistencyError{
				Reason: fmt.Sprintf("resource %q grouped %d times", addr, grouped[addr]),
			}
		}
	}
	for addr := range grouped {
		if !addresses[addr] {
			return &archerrors.GraphConsistencyError{
				Reason: fmt.Sprintf("group member %q is not a known resource", addr),
			}
		}
	}

	return nil
}
