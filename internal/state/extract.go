// Package state extracts resource records from Terraform state documents.
// It is the first pipeline stage: a pure transform from raw JSON to an
// ordered sequence of typed resources, with fail-fast validation.
package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"terraform-archviz/pkg/arch"
	archerrors "terraform-archviz/pkg/errors"
)

// Document is the result of extraction: the resource sequence plus the
// state metadata carried along for summaries and the history store.
type Document struct {
	StateVersion     int
	TerraformVersion string
	Serial           int64
	Lineage          string
	OutputCount      int
	Resources        []arch.Resource
}

// Extract parses a Terraform state document and returns its managed
// resources in document order. Data-mode resources are skipped. Any
// structurally invalid entry aborts the whole extraction: downstream
// grouping assumes a complete, consistent resource set.
func Extract(data []byte) (*Document, error) {
	var raw rawState
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &archerrors.MalformedInputError{Reason: "invalid JSON", Err: err}
	}

	doc := &Document{
		StateVersion:     raw.Version,
		TerraformVersion: raw.TerraformVersion,
		Serial:           raw.Serial,
		Lineage:          raw.Lineage,
		OutputCount:      len(raw.Outputs),
		Resources:        []arch.Resource{},
	}

	seen := make(map[string]bool)

	switch raw.Version {
	case 4:
		for i, msg := range raw.Resources {
			res, ok, err := extractV4(msg, i)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if seen[res.Address] {
				return nil, &archerrors.DuplicateResourceError{Address: res.Address}
			}
			seen[res.Address] = true
			doc.Resources = append(doc.Resources, res)
		}
	case 3:
		for mi, mod := range raw.Modules {
			resources, err := extractV3Module(mod, mi)
			if err != nil {
				return nil, err
			}
			for _, res := range resources {
				if seen[res.Address] {
					return nil, &archerrors.DuplicateResourceError{Address: res.Address}
				}
				seen[res.Address] = true
				doc.Resources = append(doc.Resources, res)
			}
		}
	default:
		return nil, &archerrors.UnsupportedSchemaVersionError{Version: raw.Version}
	}

	return doc, nil
}

// extractV4 converts one v4 resource entry. Returns ok=false for entries
// that are valid but not part of the graph (data sources, zero instances).
func extractV4(msg json.RawMessage, idx int) (arch.Resource, bool, error) {
	path := fmt.Sprintf("resources[%d]", idx)

	var entry rawResource
	if err := json.Unmarshal(msg, &entry); err != nil {
		return arch.Resource{}, false, &archerrors.MalformedInputError{
			Path: path, Reason: "invalid resource entry", Err: err,
		}
	}

	rtype, err := requireString(entry.Type, path, "type")
	if err != nil {
		return arch.Resource{}, false, err
	}
	name, err := requireString(entry.Name, path, "name")
	if err != nil {
		return arch.Resource{}, false, err
	}

	// Data sources are read-only lookups, not provisioned infrastructure.
	if entry.Mode != "" && entry.Mode != "managed" {
		return arch.Resource{}, false, nil
	}
	if len(entry.Instances) == 0 {
		return arch.Resource{}, false, nil
	}

	// Most resources have a single instance; count/for_each expansions
	// share configuration, so the first instance is representative.
	inst := entry.Instances[0]
	attrs := inst.Attributes
	if attrs == nil && len(inst.AttributesFlat) > 0 {
		attrs = make(map[string]any, len(inst.AttributesFlat))
		for k, v := range inst.AttributesFlat {
			attrs[k] = v
		}
	}
	if attrs == nil {
		attrs = map[string]any{}
	}

	return arch.Resource{
		Address: qualify(entry.Module, rtype, name),
		Type:    rtype,
		Name:    name,
		Module:  entry.Module,
		// State documents carry no user-declared vs provider-assigned
		// split: everything the provider wrote back lands here.
		ComputedAttributes: attrs,
		RawDependencies:    dedupe(inst.Dependencies),
	}, true, nil
}

func extractV3Module(mod rawModule, idx int) ([]arch.Resource, error) {
	module := v3ModulePath(mod.Path)

	// Sort keys for a deterministic extraction order; v3 stores resources
	// in a JSON object.
	keys := make([]string, 0, len(mod.Resources))
	for k := range mod.Resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []arch.Resource
	for _, key := range keys {
		path := fmt.Sprintf("modules[%d].resources[%q]", idx, key)

		if strings.HasPrefix(key, "data.") {
			continue
		}

		var entry rawV3Resource
		if err := json.Unmarshal(mod.Resources[key], &entry); err != nil {
			return nil, &archerrors.MalformedInputError{
				Path: path, Reason: "invalid resource entry", Err: err,
			}
		}

		rtype, name, err := splitV3Key(key, entry.Type, path)
		if err != nil {
			return nil, err
		}

		attrs := make(map[string]any, len(entry.Primary.Attributes))
		for k, v := range entry.Primary.Attributes {
			attrs[k] = v
		}

		out = append(out, arch.Resource{
			Address:            qualify(module, rtype, name),
			Type:               rtype,
			Name:               name,
			Module:             module,
			ComputedAttributes: attrs,
			RawDependencies:    dedupe(entry.DependsOn),
		})
	}
	return out, nil
}

// splitV3Key derives type and name from a v3 resource key ("type.name"),
// cross-checked against the entry's own type field when present.
func splitV3Key(key string, typeField any, path string) (string, string, error) {
	i := strings.Index(key, ".")
	if i <= 0 || i == len(key)-1 {
		return "", "", &archerrors.MalformedInputError{
			Path: path, Reason: fmt.Sprintf("resource key %q is not type.name", key),
		}
	}
	rtype, name := key[:i], key[i+1:]

	if typeField != nil {
		ts, ok := typeField.(string)
		if !ok {
			return "", "", &archerrors.MalformedInputError{
				Path: path, Reason: "field \"type\" is not a string",
			}
		}
		if ts != "" {
			rtype = ts
		}
	}
	return rtype, name, nil
}

// v3ModulePath renders a v3 path array as an address prefix.
// ["root"] is the root module; ["root","app"] becomes "module.app".
func v3ModulePath(path []string) string {
	if len(path) <= 1 {
		return ""
	}
	parts := make([]string, 0, (len(path)-1)*2)
	for _, p := range path[1:] {
		parts = append(parts, "module", p)
	}
	return strings.Join(parts, ".")
}

func qualify(module, rtype, name string) string {
	if module != "" {
		return module + "." + rtype + "." + name
	}
	return rtype + "." + name
}

func requireString(v any, path, field string) (string, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		reason := fmt.Sprintf("field %q is missing or not a string", field)
		return "", &archerrors.MalformedInputError{Path: path, Reason: reason}
	}
	return s, nil
}

// dedupe removes duplicates preserving first-occurrence order.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
