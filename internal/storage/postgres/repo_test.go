package postgres

import (
	"strings"
	"testing"

	"stageload/internal/storage"
)

func TestCopyTextSQL(t *testing.T) {
	t.Parallel()

	got := copyTextSQL("staging_beers", []string{"id", "name"})
	want := `COPY "staging_beers" ("id", "name") FROM STDIN (FORMAT text, DELIMITER '|', NULL '\N')`
	if got != want {
		t.Fatalf("copyTextSQL = %q, want %q", got, want)
	}
}

func TestCreateStagingSQLColumns(t *testing.T) {
	t.Parallel()

	ddl := createStagingSQL("staging_beers")
	for _, col := range storage.Columns {
		if !strings.Contains(ddl, col) {
			t.Fatalf("DDL missing column %q:\n%s", col, ddl)
		}
	}
	for _, frag := range []string{"first_brewed        DATE", "abv                 DECIMAL", "volume              INTEGER"} {
		if !strings.Contains(ddl, frag) {
			t.Fatalf("DDL missing %q:\n%s", frag, ddl)
		}
	}
}

func TestSelectListCasts(t *testing.T) {
	t.Parallel()

	got := selectList([]string{"id", "first_brewed", "abv", "name"})
	want := `"id", "first_brewed"::text, "abv"::float8, "name"`
	if got != want {
		t.Fatalf("selectList = %q, want %q", got, want)
	}
}

func TestPlaceholder(t *testing.T) {
	t.Parallel()

	var s session
	if got := s.Placeholder(17); got != "$17" {
		t.Fatalf("Placeholder(17) = %q", got)
	}
}

func TestPgIdentQuoting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"staging_beers", `"staging_beers"`},
		{`wei"rd`, `"wei""rd"`},
	}
	for _, tt := range tests {
		if got := pgIdent(tt.in); got != tt.want {
			t.Fatalf("pgIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := pgFQN("etl.staging_beers"); got != `"etl"."staging_beers"` {
		t.Fatalf("pgFQN = %q", got)
	}
	if got := pgFQN("staging_beers"); got != `"staging_beers"` {
		t.Fatalf("pgFQN single = %q", got)
	}
}
