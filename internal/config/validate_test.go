package config

import (
	"strings"
	"testing"
)

// validProfile is the baseline each case mutates.
func validProfile() Profile {
	p := Profile{
		Source:  Source{Kind: "file", File: SourceFile{Path: "testdata/beers.json"}},
		Storage: Storage{Kind: "sqlite", DSN: ":memory:"},
		Load:    Load{Strategy: "copy_stream"},
	}
	p.ApplyDefaults()
	return p
}

func findIssue(issues []Issue, path string) *Issue {
	for i := range issues {
		if issues[i].Path == path {
			return &issues[i]
		}
	}
	return nil
}

func TestValidateCleanProfile(t *testing.T) {
	t.Parallel()

	if issues := Validate(validProfile()); len(issues) != 0 {
		t.Fatalf("Validate = %v, want no issues", issues)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*Profile)
		wantPath string
		wantSev  IssueSeverity
	}{
		{
			name:     "empty source kind",
			mutate:   func(p *Profile) { p.Source.Kind = "" },
			wantPath: "source.kind",
			wantSev:  SeverityError,
		},
		{
			name:     "unknown source kind",
			mutate:   func(p *Profile) { p.Source.Kind = "queue" },
			wantPath: "source.kind",
			wantSev:  SeverityError,
		},
		{
			name: "api source without base_url",
			mutate: func(p *Profile) {
				p.Source.Kind = "api"
				p.Source.API.BaseURL = ""
			},
			wantPath: "source.api.base_url",
			wantSev:  SeverityError,
		},
		{
			name:     "file source without path",
			mutate:   func(p *Profile) { p.Source.File.Path = "" },
			wantPath: "source.file.path",
			wantSev:  SeverityError,
		},
		{
			name:     "negative prefetch",
			mutate:   func(p *Profile) { p.Source.Prefetch = -1 },
			wantPath: "source.prefetch",
			wantSev:  SeverityError,
		},
		{
			name:     "unknown storage kind",
			mutate:   func(p *Profile) { p.Storage.Kind = "oracle" },
			wantPath: "storage.kind",
			wantSev:  SeverityError,
		},
		{
			name:     "empty dsn",
			mutate:   func(p *Profile) { p.Storage.DSN = "  " },
			wantPath: "storage.dsn",
			wantSev:  SeverityError,
		},
		{
			name:     "unknown strategy",
			mutate:   func(p *Profile) { p.Load.Strategy = "turbo" },
			wantPath: "load.strategy",
			wantSev:  SeverityError,
		},
		{
			name:     "batch strategy memory warning",
			mutate:   func(p *Profile) { p.Load.Strategy = "batch" },
			wantPath: "load.strategy",
			wantSev:  SeverityWarning,
		},
		{
			name: "prompush without gateway",
			mutate: func(p *Profile) {
				p.Metrics.Backend = "prompush"
			},
			wantPath: "metrics.pushgateway_url",
			wantSev:  SeverityError,
		},
		{
			name:     "unknown metrics backend",
			mutate:   func(p *Profile) { p.Metrics.Backend = "statsd" },
			wantPath: "metrics.backend",
			wantSev:  SeverityError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validProfile()
			tt.mutate(&p)

			issues := Validate(p)
			iss := findIssue(issues, tt.wantPath)
			if iss == nil {
				t.Fatalf("Validate = %v, want issue at %s", issues, tt.wantPath)
			}
			if iss.Severity != tt.wantSev {
				t.Fatalf("issue severity = %s, want %s", iss.Severity, tt.wantSev)
			}
			if iss.Error() == "" || !strings.Contains(iss.Error(), tt.wantPath) {
				t.Fatalf("issue.Error() = %q", iss.Error())
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	t.Parallel()

	warn := []Issue{{Severity: SeverityWarning, Path: "x"}}
	if HasErrors(warn) {
		t.Fatalf("HasErrors(warnings) = true")
	}
	if !HasErrors(append(warn, Issue{Severity: SeverityError, Path: "y"})) {
		t.Fatalf("HasErrors(with error) = false")
	}
}
