// Package source produces raw records for the load engine.
//
// A Source is a pull-based, single-pass stream: Next returns one record at a
// time and io.EOF when the stream ends. Sources are not restartable; callers
// that need multiple passes (the benchmark harness does) construct a fresh
// Source per pass or buffer explicitly via a slice source.
package source

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"stageload/internal/records"
)

// Source yields raw records in order. Next returns io.EOF once the stream is
// exhausted; any other error is terminal.
type Source interface {
	Next() (records.Record, error)
}

type sliceSource struct {
	recs []records.Record
	pos  int
}

// FromSlice returns an in-memory Source over recs. Useful for tests and for
// benchmark passes that replay the same dataset.
func FromSlice(recs []records.Record) Source {
	return &sliceSource{recs: recs}
}

func (s *sliceSource) Next() (records.Record, error) {
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}

// FromFile reads a JSON array of records from path and returns a Source over
// it. The whole file is decoded up front; file inputs are small compared to
// the API stream, and this keeps the source trivially re-creatable.
func FromFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()

	var recs []records.Record
	if err := json.NewDecoder(f).Decode(&recs); err != nil {
		return nil, fmt.Errorf("source: decode %s: %w", path, err)
	}
	return FromSlice(recs), nil
}

// Drain pulls src to exhaustion and returns all records. Intended for
// callers that explicitly want a buffered, replayable copy.
func Drain(src Source) ([]records.Record, error) {
	var recs []records.Record
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
