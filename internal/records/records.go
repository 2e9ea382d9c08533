// Package records defines the raw record shape produced by sources.
//
// A Record is a semantic field-name → value map, exactly as decoded by
// encoding/json (numbers arrive as float64, nested objects as
// map[string]any). Records are transient: they are owned by whichever
// pipeline stage is currently processing them and are never persisted.
//
// The typed accessors report presence alongside the value. They do not
// return errors: a value of the wrong dynamic type reads as absent, and the
// normalizer owns the policy for what absence means per field.
package records

// Record is one raw record from a source.
type Record map[string]any

// Has reports whether field is present with a non-nil value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Int returns the field as an int64. JSON decoding produces float64, so
// float64 values are accepted when they carry no fractional part.
func (r Record) Int(field string) (int64, bool) {
	switch v := r[field].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

// Float returns the field as a float64. Integer values are widened.
func (r Record) Float(field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// String returns the field as a string.
func (r Record) String(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok
}

// Nested returns the field as a child Record. Both Record and the raw
// map[string]any produced by encoding/json are accepted.
func (r Record) Nested(field string) (Record, bool) {
	switch v := r[field].(type) {
	case Record:
		return v, true
	case map[string]any:
		return Record(v), true
	}
	return nil, false
}
