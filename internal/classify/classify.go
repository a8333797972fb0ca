// Package classify infers the dominant cloud provider of a resource set
// from resource type name prefixes.
package classify

import (
	"strings"

	"terraform-archviz/pkg/arch"
)

// Rule maps a resource type prefix to a provider. When rules overlap the
// longest matching prefix wins.
type Rule struct {
	Prefix   string
	Provider arch.Provider
}

// DefaultRules covers the provider naming conventions of the Terraform
// registry. Immutable configuration data, passed in rather than held as
// ambient state.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "azurerm_", Provider: arch.ProviderAzure},
		{Prefix: "azuread_", Provider: arch.ProviderAzure},
		{Prefix: "azapi_", Provider: arch.ProviderAzure},
		{Prefix: "aws_", Provider: arch.ProviderAWS},
		{Prefix: "awscc_", Provider: arch.ProviderAWS},
		{Prefix: "google_", Provider: arch.ProviderGCP},
	}
}

// tiePriority breaks vote ties. Azure first: its type namespace is the
// most specific, so an equal count is least likely to be accidental.
var tiePriority = []arch.Provider{arch.ProviderAzure, arch.ProviderAWS, arch.ProviderGCP}

// Detect votes each resource's type against the rules and returns the
// provider with the highest count. Resources matching no rule are ignored
// for voting; if nothing matches at all the result is ProviderUnknown,
// which only disables provider-specific grouping downstream.
func Detect(resources []arch.Resource, rules []Rule) arch.Provider {
	counts := make(map[arch.Provider]int)
	for _, r := range resources {
		if p, ok := match(r.Type, rules); ok {
			counts[p]++
		}
	}

	winner := arch.ProviderUnknown
	best := 0
	for _, p := range tiePriority {
		if counts[p] > best {
			best = counts[p]
			winner = p
		}
	}
	return winner
}

// match returns the provider of the longest rule prefix matching the type.
func match(rtype string, rules []Rule) (arch.Provider, bool) {
	var (
		found   bool
		longest int
		result  arch.Provider
	)
	for _, rule := range rules {
		if strings.HasPrefix(rtype, rule.Prefix) && len(rule.Prefix) > longest {
			found = true
			longest = len(rule.Prefix)
			result = rule.Provider
		}
	}
	return result, found
}
