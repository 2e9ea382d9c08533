package normalize

import "fmt"

// SchemaError reports a required field that is missing or not representable
// in the staging schema (including missing nested structures such as
// volume.value). It aborts the record and, by extension, the whole load.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("normalize: required field %q missing or malformed", e.Field)
}

// FormatError reports a first_brewed token that matches neither of the two
// accepted shapes ("MM/YYYY" or "YYYY").
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("normalize: unrecognized first_brewed format: %q", e.Value)
}
