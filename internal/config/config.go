// Package config defines the canonical, JSON-serializable configuration
// model for the staging load engine. It is intentionally small, explicit,
// and dependency-free: profiles are decoded from disk with the standard
// library and passed through the program without additional glue code.
//
// Example (trimmed):
//
//	{
//	  "source":  { "kind": "api", "api": { "base_url": "https://api.punkapi.com/v2/beers", "page_size": 80 } },
//	  "storage": { "kind": "postgres", "dsn": "postgresql://...", "table": "staging_beers" },
//	  "load":    { "strategy": "copy_stream", "buffer_size": 8192 },
//	  "metrics": { "backend": "prompush", "pushgateway_url": "http://pushgateway:9091" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Profile is the top-level object decoded from a config file.
type Profile struct {
	// Source describes where raw records come from.
	Source Source `json:"source"`

	// Storage describes the destination store.
	Storage Storage `json:"storage"`

	// Load selects and parameterizes the batching strategy.
	Load Load `json:"load"`

	// Metrics selects an optional metrics backend.
	Metrics Metrics `json:"metrics"`
}

// Source identifies the record source. Kinds: "api", "file".
type Source struct {
	Kind string `json:"kind"`

	// API carries options for the "api" source kind.
	API SourceAPI `json:"api"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`

	// Prefetch, when positive, overlaps fetching with loading by pulling
	// records into a bounded buffer of this depth on a separate goroutine.
	Prefetch int `json:"prefetch"`
}

// SourceAPI holds configuration for the paginated HTTP source.
type SourceAPI struct {
	// BaseURL is the collection endpoint, without pagination parameters.
	BaseURL string `json:"base_url"`

	// PageSize is the per_page value sent to the API. Zero uses the
	// source's default.
	PageSize int `json:"page_size"`

	// TimeoutSeconds bounds each HTTP request. Zero uses the default.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxRetries is the number of retries per page on retryable failures.
	MaxRetries int `json:"max_retries"`
}

// SourceFile holds configuration for the "file" source kind: a local JSON
// array of records.
type SourceFile struct {
	Path string `json:"path"`
}

// Storage selects the destination store. Kinds: "postgres", "sqlite".
type Storage struct {
	Kind string `json:"kind"`

	// DSN is the backend connection string: a pgx URL for postgres, a file
	// path or ":memory:" for sqlite.
	DSN string `json:"dsn"`

	// Table is the staging table name. Empty uses the default.
	Table string `json:"table"`

	// SingleTransaction wraps schema recreation and the whole load in one
	// transaction. Off by default: per-statement autocommit matches the
	// store's native behavior and is what the strategies are measured
	// against.
	SingleTransaction bool `json:"single_transaction"`
}

// Load selects the batching strategy and its parameters.
type Load struct {
	// Strategy is one of "one_by_one", "batch", "chunked", "copy_stream".
	Strategy string `json:"strategy"`

	// PageSize parameterizes the "chunked" strategy.
	PageSize int `json:"page_size"`

	// BufferSize bounds the per-read byte count of the "copy_stream"
	// strategy's text adapter.
	BufferSize int `json:"buffer_size"`
}

// Metrics selects an optional metrics backend. Kinds: "" (none),
// "prompush".
type Metrics struct {
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`

	// Job is the Pushgateway job grouping key. Empty uses the default.
	Job string `json:"job"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultStrategy   = "copy_stream"
	DefaultPageSize   = 100
	DefaultBufferSize = 8192
	DefaultAPIPage    = 80
	DefaultAPITimeout = 30 * time.Second
)

// LoadFile reads and decodes a Profile from path. Unknown fields are
// rejected so typos fail loudly instead of silently configuring nothing.
func LoadFile(path string) (Profile, error) {
	var p Profile

	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("config: decode %s: %w", path, err)
	}
	p.ApplyDefaults()
	return p, nil
}

// ApplyDefaults fills zero values with working defaults. It never overrides
// a value the profile set explicitly.
func (p *Profile) ApplyDefaults() {
	if p.Load.Strategy == "" {
		p.Load.Strategy = DefaultStrategy
	}
	if p.Load.PageSize <= 0 {
		p.Load.PageSize = DefaultPageSize
	}
	if p.Load.BufferSize <= 0 {
		p.Load.BufferSize = DefaultBufferSize
	}
	if p.Source.API.PageSize <= 0 {
		p.Source.API.PageSize = DefaultAPIPage
	}
	if p.Source.API.TimeoutSeconds <= 0 {
		p.Source.API.TimeoutSeconds = int(DefaultAPITimeout / time.Second)
	}
}
