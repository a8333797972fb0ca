package state

import "encoding/json"

// Raw structures for Terraform state JSON. Two schema generations are
// handled: version 4 (Terraform >= 0.12, resources with instances) and
// version 3 (modules with a resources map).

type rawState struct {
	Version          int                  `json:"version"`
	TerraformVersion string               `json:"terraform_version"`
	Serial           int64                `json:"serial"`
	Lineage          string               `json:"lineage"`
	Outputs          map[string]rawOutput `json:"outputs"`
	Resources        []json.RawMessage    `json:"resources"` // v4
	Modules          []rawModule          `json:"modules"`   // v3
}

type rawOutput struct {
	Value     any  `json:"value"`
	Type      any  `json:"type"`
	Sensitive bool `json:"sensitive,omitempty"`
}

// rawResource is a v4 state resource. Type and Name are decoded as any so
// missing or non-string values can be rejected per entry instead of
// surfacing as an opaque decode failure.
type rawResource struct {
	Module    string        `json:"module,omitempty"`
	Mode      string        `json:"mode"`
	Type      any           `json:"type"`
	Name      any           `json:"name"`
	Provider  string        `json:"provider"`
	Instances []rawInstance `json:"instances"`
}

type rawInstance struct {
	SchemaVersion int            `json:"schema_version"`
	IndexKey      any            `json:"index_key,omitempty"`
	Attributes    map[string]any `json:"attributes"`
	// Pre-0.12 flatmap attributes, still emitted by some tooling.
	AttributesFlat map[string]string `json:"attributes_flat,omitempty"`
	Dependencies   []string          `json:"dependencies,omitempty"`
}

// v3 structures. Resources are keyed by "type.name" (or "data.type.name")
// and hold a single primary instance with flat string attributes.

type rawModule struct {
	Path      []string                   `json:"path"`
	Resources map[string]json.RawMessage `json:"resources"`
	Outputs   map[string]json.RawMessage `json:"outputs"`
	DependsOn []string                   `json:"depends_on,omitempty"`
}

type rawV3Resource struct {
	Type      any           `json:"type"`
	Provider  string        `json:"provider"`
	DependsOn []string      `json:"depends_on,omitempty"`
	Primary   rawV3Instance `json:"primary"`
}

type rawV3Instance struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes"`
}
