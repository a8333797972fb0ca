// Package errors defines the parse error taxonomy.
// Callers always get either a complete, invariant-satisfying Architecture
// or one of these errors; the engine never surfaces a partial graph.
package errors

import "fmt"

// MalformedInputError reports a structurally invalid state document.
// Not recoverable: the whole parse is aborted.
type MalformedInputError struct {
	Path   string // document location of the offending entry, e.g. "resources[3]"
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed state document at %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("malformed state document: %s", e.Reason)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// DuplicateResourceError reports an address collision between two resources.
type DuplicateResourceError struct {
	Address string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("duplicate resource address %q", e.Address)
}

// UnsupportedSchemaVersionError reports a state format generation the
// compatibility shim does not handle. Recoverable by the caller rejecting
// the file or choosing another parse path.
type UnsupportedSchemaVersionError struct {
	Version int
}

func (e *UnsupportedSchemaVersionError) Error() string {
	return fmt.Sprintf("unsupported state schema version %d (supported: 3, 4)", e.Version)
}

// GraphConsistencyError reports an internal invariant violation detected
// during assembly. It signals an engine bug and is always fatal.
type GraphConsistencyError struct {
	Reason string
}

func (e *GraphConsistencyError) Error() string {
	return fmt.Sprintf("graph consistency violation: %s", e.Reason)
}
