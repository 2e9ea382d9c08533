package storage

import (
	"fmt"
	"strings"
)

// DefaultTable is the staging relation loaded by default. Staging is
// truncate-and-reload: every load drops and recreates it.
const DefaultTable = "staging_beers"

// Columns enumerates the staging columns in their fixed order. The ordering
// is load-bearing: the parameterized-insert path, the text-copy path, and
// the encoder all align positionally with this slice.
var Columns = []string{
	"id",
	"name",
	"tagline",
	"first_brewed",
	"description",
	"image_url",
	"abv",
	"ibu",
	"target_fg",
	"target_og",
	"ebc",
	"srm",
	"ph",
	"attenuation_level",
	"brewers_tips",
	"contributed_by",
	"volume",
}

// InsertSQL builds the positional insert statement for the staging table in
// the store's placeholder dialect.
func InsertSQL(st Store, table string) string {
	placeholders := make([]string, len(Columns))
	for i := range Columns {
		placeholders[i] = st.Placeholder(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(Columns, ", "),
		strings.Join(placeholders, ", "),
	)
}
