// Package deps resolves inter-resource dependency edges.
//
// Two reference sources feed one edge set: the explicit dependency lists
// declared on each resource, and implicit references found by scanning
// attribute values for other resources' addresses or identifiers. Matching
// is done by probing a single index built once over the resource set, so
// resolution runs in time proportional to the total attribute size, not
// the resource-pair product.
//
// Implicit matching is substring-based and therefore approximate: an
// accidental match produces a spurious edge, never an error. That is an
// accepted limitation of reference detection over opaque string values.
package deps

import (
	"sort"
	"strings"

	"terraform-archviz/pkg/arch"
)

// minIDLength guards the identifier index against trivially short values
// ("1", "eu") that would match almost anything.
const minIDLength = 4

// Resolve produces the deduplicated directed edge set for the resource
// sequence. Edges whose target is not in the set are dropped; self-edges
// are dropped. Output order is deterministic for a given input.
func Resolve(resources []arch.Resource) []arch.Edge {
	idx := buildIndex(resources)

	var edges []arch.Edge
	seen := make(map[string]bool)

	add := func(from, to string, kind arch.EdgeKind) {
		if from == to {
			return
		}
		if !idx.known[to] {
			return // dangling reference, excluded by policy
		}
		key := from + "\x00" + to
		if seen[key] {
			return
		}
		seen[key] = true
		edges = append(edges, arch.Edge{From: from, To: to, Kind: kind})
	}

	for _, r := range resources {
		// Explicit: declared dependency lists, order preserved.
		for _, dep := range r.RawDependencies {
			add(r.Address, dep, arch.EdgeExplicit)
		}

		// Implicit: references embedded in attribute values. Config
		// attributes first; state documents fold everything the provider
		// wrote back into the computed map, so both are scanned.
		scan := func(to string) { add(r.Address, to, arch.EdgeImplicit) }
		walkValues(r.ConfigAttributes, idx, scan)
		walkValues(r.ComputedAttributes, idx, scan)
	}

	return edges
}

// refIndex maps reference tokens back to resource addresses.
type refIndex struct {
	known map[string]bool   // address membership
	refs  map[string]string // "type.name" / address -> address
	ids   map[string]string // id attribute value -> address
}

func buildIndex(resources []arch.Resource) *refIndex {
	idx := &refIndex{
		known: make(map[string]bool, len(resources)),
		refs:  make(map[string]string, len(resources)*2),
		ids:   make(map[string]string, len(resources)),
	}
	for _, r := range resources {
		idx.known[r.Address] = true

		// First writer wins so earlier resources take precedence,
		// matching the deterministic tie-break used elsewhere.
		putIfAbsent(idx.refs, r.Address, r.Address)
		putIfAbsent(idx.refs, r.Type+"."+r.Name, r.Address)

		if id := stringAttr(r, "id"); len(id) >= minIDLength {
			putIfAbsent(idx.ids, id, r.Address)
		}
	}
	return idx
}

func putIfAbsent(m map[string]string, k, v string) {
	if _, ok := m[k]; !ok {
		m[k] = v
	}
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

// walkValues traverses an attribute tree (closed variant over string,
// number, bool, nil, sequence, mapping) and reports referenced addresses.
// Maps are walked in sorted key order so edge discovery is deterministic.
func walkValues(v any, idx *refIndex, found func(string)) {
	switch val := v.(type) {
	case string:
		scanString(val, idx, found)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkValues(val[k], idx, found)
		}
	case []any:
		for _, item := range val {
			walkValues(item, idx, found)
		}
	}
	// Numbers, booleans and nulls cannot carry references.
}

// scanString probes a single attribute string against the index. The
// string is split into identifier tokens; each token, each dotted window
// within it, and the whole trimmed value are probed.
func scanString(s string, idx *refIndex, found func(string)) {
	if s == "" {
		return
	}

	// Whole-value probe: id attributes are usually referenced verbatim
	// (vpc_id = "vpc-0a1b2c", subnet_id = an ARM path).
	trimmed := strings.TrimSpace(s)
	if addr, ok := idx.ids[trimmed]; ok {
		found(addr)
	}

	for _, token := range tokenize(s) {
		if addr, ok := idx.ids[token]; ok {
			found(addr)
		}
		probeDotted(token, idx, found)
	}
}

// probeDotted probes every contiguous dotted window of the token, so
// "${module.app.aws_instance.web.id}" yields "aws_instance.web" and
// "module.app.aws_instance.web".
func probeDotted(token string, idx *refIndex, found func(string)) {
	if addr, ok := idx.refs[token]; ok {
		found(addr)
		return
	}
	if !strings.Contains(token, ".") {
		return
	}
	parts := strings.Split(token, ".")
	for i := 0; i < len(parts); i++ {
		for j := i + 2; j <= len(parts); j++ {
			window := strings.Join(parts[i:j], ".")
			if addr, ok := idx.refs[window]; ok {
				found(addr)
			}
		}
	}
}

// tokenize extracts maximal runs of identifier characters. Dots stay
// inside tokens so reference paths survive; everything else splits.
func tokenize(s string) []string {
	var tokens []string
	start := -1
	for i, c := range s {
		if isIdentChar(c) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

func isIdentChar(c rune) bool {
	return c == '_' || c == '-' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
