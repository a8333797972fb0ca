// Package group computes the hierarchical containment tree used for
// diagram layout. Provider-specific knowledge lives in rule tables; one
// generic algorithm consumes them, so adding a provider means adding a
// rule set, not a code path.
package group

import (
	"strings"

	"terraform-archviz/pkg/arch"
)

// LevelRule declares which resource types act as containers at one level
// of the hierarchy, and which member attributes bind a resource into a
// container at this level when no dependency edge exists.
type LevelRule struct {
	Types       []string
	MemberAttrs []string
}

// RuleSet is the ordered container hierarchy for one provider,
// top-down: Levels[0] is the outermost container level.
type RuleSet struct {
	Levels []LevelRule
}

const ungroupedLabel = "ungrouped"

// Build computes the grouping tree. Every resource lands in exactly one
// node: a container node, the node of the container it depends on, or the
// synthetic ungrouped bucket.
func Build(resources []arch.Resource, edges []arch.Edge, provider arch.Provider, rules map[arch.Provider]RuleSet) *arch.GroupNode {
	ruleset, ok := rules[provider]
	if provider == arch.ProviderUnknown || !ok || len(ruleset.Levels) == 0 {
		return flat(resources)
	}

	b := &builder{
		resources: resources,
		ruleset:   ruleset,
		outEdges:  edgeSet(edges),
	}
	return b.build(provider)
}

// flat emits a single root bucket holding all resources, used when no
// provider-specific rules apply.
func flat(resources []arch.Resource) *arch.GroupNode {
	root := &arch.GroupNode{Label: ungroupedLabel, Level: 0}
	for _, r := range resources {
		root.Members = append(root.Members, r.Address)
	}
	return root
}

type container struct {
	res   arch.Resource
	node  *arch.GroupNode
	level int // rule level, 0 = outermost
}

type builder struct {
	resources []arch.Resource
	ruleset   RuleSet
	outEdges  map[string]map[string]bool

	containers []*container
	byAddr     map[string]*container
	ungrouped  *arch.GroupNode
}

func (b *builder) build(provider arch.Provider) *arch.GroupNode {
	root := &arch.GroupNode{Label: string(provider), Level: 0}
	b.byAddr = make(map[string]*container)

	// Pass 1: create container nodes level by level, attaching each to
	// the container it depends on at the level above, or to the
	// ungrouped bucket when no such dependency exists.
	for level, rule := range b.ruleset.Levels {
		for _, r := range b.resources {
			if !containsType(rule.Types, r.Type) {
				continue
			}
			node := &arch.GroupNode{Label: r.Name, Members: []string{r.Address}}
			c := &container{res: r, node: node, level: level}

			if level == 0 {
				node.Level = 1
				root.Children = append(root.Children, node)
			} else if parent := b.findContainer(r, level-1); parent != nil {
				node.Level = parent.node.Level + 1
				parent.node.Children = append(parent.node.Children, node)
			} else {
				node.Level = 1
				b.ungroupedNode(root).Children = append(b.ungroupedNode(root).Children, node)
			}

			b.containers = append(b.containers, c)
			b.byAddr[r.Address] = c
		}
	}

	// Pass 2: attach every remaining resource to the deepest container
	// it depends on; leftovers go to the ungrouped bucket.
	for _, r := range b.resources {
		if _, isContainer := b.byAddr[r.Address]; isContainer {
			continue
		}
		placed := false
		for level := len(b.ruleset.Levels) - 1; level >= 0; level-- {
			if c := b.findContainer(r, level); c != nil {
				c.node.Members = append(c.node.Members, r.Address)
				placed = true
				break
			}
		}
		if !placed {
			u := b.ungroupedNode(root)
			u.Members = append(u.Members, r.Address)
		}
	}

	return root
}

// findContainer picks the container at the given level that the resource
// depends on, via an edge or a binding attribute. Containers are checked
// in resource-sequence order, so the first match wins deterministically.
func (b *builder) findContainer(r arch.Resource, level int) *container {
	rule := b.ruleset.Levels[level]
	targets := b.outEdges[r.Address]

	for _, c := range b.containers {
		if c.level != level {
			continue
		}
		if targets[c.res.Address] {
			return c
		}
		if bindsTo(r, c.res, rule.MemberAttrs) {
			return c
		}
	}
	return nil
}

// bindsTo reports whether a member attribute ties the resource to the
// container: equal to the container's declared name or local name, or
// containing its provider-assigned id.
func bindsTo(member, cont arch.Resource, attrs []string) bool {
	for _, attr := range attrs {
		v := stringAttr(member, attr)
		if v == "" {
			continue
		}
		if v == cont.Name {
			return true
		}
		if n := stringAttr(cont, "name"); n != "" && v == n {
			return true
		}
		if id := stringAttr(cont, "id"); len(id) >= 4 && strings.Contains(v, id) {
			return true
		}
	}
	return false
}

func (b *builder) ungroupedNode(root *arch.GroupNode) *arch.GroupNode {
	if b.ungrouped == nil {
		b.ungrouped = &arch.GroupNode{Label: ungroupedLabel, Level: 1}
		root.Children = append(root.Children, b.ungrouped)
	}
	return b.ungrouped
}

func edgeSet(edges []arch.Edge) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, e := range edges {
		if out[e.From] == nil {
			out[e.From] = make(map[string]bool)
		}
		out[e.From][e.To] = true
	}
	return out
}

func containsType(types []string, t string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func stringAttr(r arch.Resource, key string) string {
	if v, ok := r.ConfigAttributes[key].(string); ok {
		return v
	}
	if v, ok := r.ComputedAttributes[key].(string); ok {
		return v
	}
	return ""
}
