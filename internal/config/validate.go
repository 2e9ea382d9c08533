// This file adds a lightweight linter/validator for Profile values. It
// performs static checks over a decoded Profile and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be
	// surfaced to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Profile.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "load.strategy"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the list is error-severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of a Profile. It does not mutate the
// profile; callers decide whether warnings are fatal.
func Validate(p Profile) []Issue {
	var issues []Issue
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateLoad(p.Load)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}

	switch s.Kind {
	case "api":
		if strings.TrimSpace(s.API.BaseURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.api.base_url",
				Message:  "api source requires a non-empty base_url",
			})
		}
		if s.API.PageSize < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.api.page_size",
				Message:  "page_size must not be negative",
			})
		}
		if s.API.MaxRetries < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.api.max_retries",
				Message:  "max_retries must not be negative",
			})
		}
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q (want api or file)", s.Kind),
		})
	}

	if s.Prefetch < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.prefetch",
			Message:  "prefetch must not be negative",
		})
	}

	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q (want postgres or sqlite)", s.Kind),
		})
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty",
		})
	}

	return issues
}

func validateLoad(l Load) []Issue {
	var issues []Issue

	known := map[string]struct{}{
		"one_by_one":  {},
		"batch":       {},
		"chunked":     {},
		"copy_stream": {},
	}
	if _, ok := known[l.Strategy]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "load.strategy",
			Message:  fmt.Sprintf("unknown strategy %q", l.Strategy),
		})
	}

	if l.Strategy == "chunked" && l.PageSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "load.page_size",
			Message:  fmt.Sprintf("page_size=%d; the chunked strategy will fall back to its default", l.PageSize),
		})
	}
	if l.Strategy == "batch" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "load.strategy",
			Message:  "batch materializes the whole input in memory; prefer chunked or copy_stream for large datasets",
		})
	}

	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "prompush":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prompush backend requires a pushgateway_url",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want prompush or none)", m.Backend),
		})
	}

	return issues
}
