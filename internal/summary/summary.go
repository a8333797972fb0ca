// Package summary derives the resource summary handed to analysis
// collaborators: counts per type, provider, edge count, and a coarse
// category breakdown. The collaborator owns any outbound network call;
// this package produces only in-memory values and text.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"terraform-archviz/pkg/arch"
)

// Categories is a coarse functional breakdown of the resource set.
type Categories struct {
	Compute  int `json:"compute"`
	Network  int `json:"network"`
	Storage  int `json:"storage"`
	Security int `json:"security"`
}

// Summary condenses one Architecture for reporting and analysis.
type Summary struct {
	Provider         arch.Provider  `json:"provider"`
	StateVersion     int            `json:"state_version"`
	TerraformVersion string         `json:"terraform_version,omitempty"`
	TotalResources   int            `json:"total_resources"`
	TypeCount        int            `json:"type_count"`
	EdgeCount        int            `json:"edge_count"`
	GroupCount       int            `json:"group_count"`
	ResourceCounts   map[string]int `json:"resource_counts"`
	Categories       Categories     `json:"categories"`
}

var categoryKeywords = map[string][]string{
	"compute":  {"vm", "instance", "compute", "ec2", "function"},
	"network":  {"network", "subnet", "vpc", "vnet", "gateway", "dns", "lb"},
	"storage":  {"storage", "disk", "s3", "blob", "bucket", "db", "database"},
	"security": {"security", "firewall", "acl", "iam", "role", "policy", "key"},
}

// Build computes the summary for an assembled architecture.
func Build(a *arch.Architecture) *Summary {
	s := &Summary{
		Provider:         a.Provider,
		StateVersion:     a.StateVersion,
		TerraformVersion: a.TerraformVersion,
		TotalResources:   len(a.Resources),
		EdgeCount:        len(a.Edges),
		ResourceCounts:   make(map[string]int),
	}

	for _, r := range a.Resources {
		s.ResourceCounts[r.Type]++
	}
	s.TypeCount = len(s.ResourceCounts)

	a.Groups.Walk(func(*arch.GroupNode) { s.GroupCount++ })

	for rtype, count := range s.ResourceCounts {
		lower := strings.ToLower(rtype)
		if matchesAny(lower, categoryKeywords["compute"]) {
			s.Categories.Compute += count
		}
		if matchesAny(lower, categoryKeywords["network"]) {
			s.Categories.Network += count
		}
		if matchesAny(lower, categoryKeywords["storage"]) {
			s.Categories.Storage += count
		}
		if matchesAny(lower, categoryKeywords["security"]) {
			s.Categories.Security += count
		}
	}

	return s
}

func matchesAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// Text renders the summary as prompt-ready plain text, types in sorted
// order so two builds of the same architecture render identically.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Infrastructure analysis\n")
	fmt.Fprintf(&b, "Provider: %s\n", s.Provider)
	if s.TerraformVersion != "" {
		fmt.Fprintf(&b, "Terraform version: %s\n", s.TerraformVersion)
	}
	fmt.Fprintf(&b, "Total resources: %d (%d types)\n", s.TotalResources, s.TypeCount)
	fmt.Fprintf(&b, "Dependency edges: %d\n", s.EdgeCount)
	fmt.Fprintf(&b, "Groups: %d\n", s.GroupCount)
	fmt.Fprintf(&b, "Categories: compute=%d network=%d storage=%d security=%d\n",
		s.Categories.Compute, s.Categories.Network, s.Categories.Storage, s.Categories.Security)

	types := make([]string, 0, len(s.ResourceCounts))
	for t := range s.ResourceCounts {
		types = append(types, t)
	}
	sort.Strings(types)
	if len(types) > 0 {
		fmt.Fprintf(&b, "Resource types:\n")
		for _, t := range types {
			fmt.Fprintf(&b, "  - %s: %d\n", t, s.ResourceCounts[t])
		}
	}
	return b.String()
}
