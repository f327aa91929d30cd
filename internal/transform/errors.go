package transform

import "fmt"

// MappingError reports a warehouse row that could not become an MDS entity.
// It is a per-row failure: batch helpers collect these and keep going.
type MappingError struct {
	Entity string
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map %s: %s %s", e.Entity, e.Field, e.Reason)
}

func mapErr(entity, field, reason string) *MappingError {
	return &MappingError{Entity: entity, Field: field, Reason: reason}
}
