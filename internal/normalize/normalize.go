// Package normalize converts raw source records into flat, typed rows
// matching the staging schema.
//
// Normalization is pure: no I/O, no mutation of the input record. Required
// fields (id, name, first_brewed, volume.value) fail with *SchemaError when
// absent; a malformed first_brewed token fails with *FormatError. Nullable
// fields are carried as pointers and render as SQL NULL downstream.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"stageload/internal/records"
)

// Row is one normalized staging row. Field order mirrors the staging table
// column order exactly; both the parameterized-insert and text-copy paths
// rely on that alignment.
type Row struct {
	ID               int64
	Name             string
	Tagline          *string
	FirstBrewed      time.Time
	Description      *string
	ImageURL         *string
	ABV              *float64
	IBU              *float64
	TargetFG         *float64
	TargetOG         *float64
	EBC              *float64
	SRM              *float64
	PH               *float64
	AttenuationLevel *float64
	BrewersTips      *string
	ContributedBy    *string
	Volume           int64
}

// Values returns the row as positional statement arguments in staging column
// order. Absent nullable fields become untyped nils.
func (r *Row) Values() []any {
	return []any{
		r.ID,
		r.Name,
		strArg(r.Tagline),
		r.FirstBrewed,
		strArg(r.Description),
		strArg(r.ImageURL),
		numArg(r.ABV),
		numArg(r.IBU),
		numArg(r.TargetFG),
		numArg(r.TargetOG),
		numArg(r.EBC),
		numArg(r.SRM),
		numArg(r.PH),
		numArg(r.AttenuationLevel),
		strArg(r.BrewersTips),
		strArg(r.ContributedBy),
		r.Volume,
	}
}

func strArg(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func numArg(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// ParseFirstBrewed resolves a first_brewed token to a concrete calendar
// date. Accepted shapes: "MM/YYYY" (first day of that month) and "YYYY"
// (January 1). Anything else fails with *FormatError; there is no fuzzy
// parsing.
func ParseFirstBrewed(text string) (time.Time, error) {
	parts := strings.Split(text, "/")
	switch len(parts) {
	case 1:
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			return time.Time{}, &FormatError{Value: text}
		}
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	case 2:
		month, merr := strconv.Atoi(parts[0])
		year, yerr := strconv.Atoi(parts[1])
		if merr != nil || yerr != nil || month < 1 || month > 12 {
			return time.Time{}, &FormatError{Value: text}
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, &FormatError{Value: text}
	}
}

// Normalize flattens one raw record into a Row. The input record is not
// mutated. The first failing field wins; there is no partial row.
func Normalize(rec records.Record) (*Row, error) {
	id, ok := rec.Int("id")
	if !ok {
		return nil, &SchemaError{Field: "id"}
	}
	name, ok := rec.String("name")
	if !ok {
		return nil, &SchemaError{Field: "name"}
	}
	brewed, ok := rec.String("first_brewed")
	if !ok {
		return nil, &SchemaError{Field: "first_brewed"}
	}
	firstBrewed, err := ParseFirstBrewed(brewed)
	if err != nil {
		return nil, err
	}
	volume, ok := rec.Nested("volume")
	if !ok {
		return nil, &SchemaError{Field: "volume.value"}
	}
	volumeValue, ok := volume.Int("value")
	if !ok {
		return nil, &SchemaError{Field: "volume.value"}
	}

	row := &Row{
		ID:          id,
		Name:        name,
		FirstBrewed: firstBrewed,
		Volume:      volumeValue,
	}

	if err := optText(rec, "tagline", &row.Tagline); err != nil {
		return nil, err
	}
	if err := optText(rec, "description", &row.Description); err != nil {
		return nil, err
	}
	if err := optText(rec, "image_url", &row.ImageURL); err != nil {
		return nil, err
	}
	if err := optText(rec, "brewers_tips", &row.BrewersTips); err != nil {
		return nil, err
	}
	if err := optText(rec, "contributed_by", &row.ContributedBy); err != nil {
		return nil, err
	}

	if err := optDecimal(rec, "abv", &row.ABV); err != nil {
		return nil, err
	}
	if err := optDecimal(rec, "ibu", &row.IBU); err != nil {
		return nil, err
	}
	if err := optDecimal(rec, "target_fg", &row.TargetFG); err != nil {
		return nil, err
	}
	if err := optDecimal(rec, "target_og", &row.TargetOG); err != nil {
		return nil, err
	}
	if err := optDecimal(rec, "ebc", &row.EBC); err != nil {
		return nil, err
	}
	if err := optDecimal(rec, "srm", &row.SRM); err != nil {
		return nil, err
	}
	if err := optDecimal(rec, "ph", &row.PH); err != nil {
		return nil, err
	}
	if err := optDecimal(rec, "attenuation_level", &row.AttenuationLevel); err != nil {
		return nil, err
	}

	return row, nil
}

// optText reads a nullable text field. Absent or null stays nil; a present
// value of the wrong type is a schema violation.
func optText(rec records.Record, field string, dst **string) error {
	if !rec.Has(field) {
		return nil
	}
	s, ok := rec.String(field)
	if !ok {
		return &SchemaError{Field: field}
	}
	*dst = &s
	return nil
}

// optDecimal reads a nullable numeric field. Nullable numerics may be absent
// but are never malformed strings; anything non-numeric is a schema
// violation.
func optDecimal(rec records.Record, field string, dst **float64) error {
	if !rec.Has(field) {
		return nil
	}
	f, ok := rec.Float(field)
	if !ok {
		return &SchemaError{Field: field}
	}
	*dst = &f
	return nil
}
