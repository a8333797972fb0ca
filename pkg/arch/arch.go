// Package arch defines the architecture graph model.
// It is the sole artifact handed to rendering and analysis collaborators:
// typed resources, the detected provider, dependency edges, and the
// hierarchical grouping tree used to lay out a diagram.
package arch

import "github.com/google/uuid"

// Provider identifies the dominant cloud provider of a parsed state.
type Provider string

const (
	ProviderAzure   Provider = "azure"
	ProviderAWS     Provider = "aws"
	ProviderGCP     Provider = "gcp"
	ProviderUnknown Provider = "unknown"
)

// Resource represents a single provisioned infrastructure object.
// It corresponds to a Terraform resource but with normalized attributes,
// addressed as [module.]type.name (for example "aws_instance.web").
// Resources are immutable once extracted.
type Resource struct {
	Address            string         `json:"address"`
	Type               string         `json:"type"`
	Name               string         `json:"name"`
	Module             string         `json:"module,omitempty"`
	ConfigAttributes   map[string]any `json:"config_attributes,omitempty"`
	ComputedAttributes map[string]any `json:"computed_attributes,omitempty"`

	// RawDependencies holds the declared dependency addresses, in
	// declaration order, deduped.
	RawDependencies []string `json:"raw_dependencies,omitempty"`
}

// EdgeKind records how a dependency edge was discovered.
type EdgeKind string

const (
	EdgeExplicit EdgeKind = "explicit" // declared dependency list
	EdgeImplicit EdgeKind = "implicit" // reference found in attribute values
)

// Edge is a directed dependency: From references To.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// GroupNode is one node of the containment tree used for diagram layout.
// Level is the depth from the root (root = 0). Members lists the addresses
// of resources attached directly to this node.
type GroupNode struct {
	Label    string       `json:"label"`
	Level    int          `json:"level"`
	Members  []string     `json:"members,omitempty"`
	Children []*GroupNode `json:"children,omitempty"`
}

// Walk visits the node and all descendants depth-first.
func (n *GroupNode) Walk(fn func(*GroupNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// AllMembers returns every member address in the subtree, in visit order.
func (n *GroupNode) AllMembers() []string {
	var out []string
	n.Walk(func(g *GroupNode) {
		out = append(out, g.Members...)
	})
	return out
}

// Architecture is the assembled result of parsing one state document.
// Constructed once per document, read-only thereafter.
type Architecture struct {
	RunID            uuid.UUID  `json:"run_id"`
	Provider         Provider   `json:"provider"`
	StateVersion     int        `json:"state_version"`
	TerraformVersion string     `json:"terraform_version,omitempty"`
	Resources        []Resource `json:"resources"` // extraction order
	Edges            []Edge     `json:"edges"`
	Groups           *GroupNode `json:"groups"`
}

// Lookup returns the resource with the given address, if present.
func (a *Architecture) Lookup(address string) (Resource, bool) {
	for _, r := range a.Resources {
		if r.Address == address {
			return r, true
		}
	}
	return Resource{}, false
}

// Addresses returns the set of resource addresses.
func (a *Architecture) Addresses() map[string]bool {
	set := make(map[string]bool, len(a.Resources))
	for _, r := range a.Resources {
		set[r.Address] = true
	}
	return set
}
