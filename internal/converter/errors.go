package converter

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch matches every *SchemaMismatchError.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnmappedValue matches every *UnmappedValueError.
	ErrUnmappedValue = errors.New("unmapped value")
)

// SchemaMismatchError reports a domain key with no translation entry at its
// nesting level, or a value whose shape disagrees with the schema entry.
type SchemaMismatchError struct {
	// Path locates the offending attribute, e.g. "customer.nip" or
	// "items[1].vat_rate".
	Path string

	// Reason describes the mismatch.
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch at %s: %s", e.Path, e.Reason)
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// UnmappedValueError reports a value outside a lookup table's enumeration.
type UnmappedValueError struct {
	Path   string
	Lookup string
	Value  any
}

func (e *UnmappedValueError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unmapped value %v for lookup %s", e.Value, e.Lookup)
	}
	return fmt.Sprintf("unmapped value %v at %s (lookup %s)", e.Value, e.Path, e.Lookup)
}

func (e *UnmappedValueError) Is(target error) bool { return target == ErrUnmappedValue }

// TransformError wraps a failure of a computed transformer.
type TransformError struct {
	Path        string
	Transformer string
	Err         error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s failed at %s: %v", e.Transformer, e.Path, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
