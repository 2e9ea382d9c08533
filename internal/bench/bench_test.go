package bench

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"stageload/internal/records"
	"stageload/internal/source"
	"stageload/internal/storage"
	"stageload/internal/storage/sqlite"
)

func TestFingerprintOrderIndependent(t *testing.T) {
	t.Parallel()

	a := [][]any{
		{int64(1), "Buzz", "2007-09-01", nil},
		{int64(2), "Trashy Blonde", "2008-04-01", 4.1},
	}
	b := [][]any{a[1], a[0]}

	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("fingerprint depends on row order")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	t.Parallel()

	base := [][]any{{int64(1), "Buzz", nil}}
	if Fingerprint(base) == Fingerprint([][]any{{int64(1), "Buzz", ""}}) {
		t.Fatalf("nil and empty string collide")
	}
	if Fingerprint(base) == Fingerprint([][]any{{int64(2), "Buzz", nil}}) {
		t.Fatalf("differing values collide")
	}
}

// Backends hand back different Go types for the same stored value; the
// canonical form must fold them together.
func TestFingerprintCrossTypeCanonical(t *testing.T) {
	t.Parallel()

	asDriver := [][]any{{int64(20), 4.5, time.Date(2007, 9, 1, 0, 0, 0, 0, time.UTC)}}
	asPostgres := [][]any{{int32(20), 4.5, "2007-09-01"}}

	if Fingerprint(asDriver) != Fingerprint(asPostgres) {
		t.Fatalf("equivalent values fingerprint differently")
	}
}

func TestExpectedMatchesLoadedTable(t *testing.T) {
	recs := testDataset(6)

	want, err := Expected(recs)
	if err != nil {
		t.Fatalf("Expected: %v", err)
	}

	repo, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	defer repo.Close()

	l := &storage.Loader{Store: repo}
	if _, err := l.Load(context.Background(), storage.Batch{}, source.FromSlice(recs)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	rows, err := repo.SelectAll(context.Background(), storage.DefaultTable, storage.Columns)
	if err != nil {
		t.Fatalf("SelectAll: %v", err)
	}
	if got := Fingerprint(rows); got != want {
		t.Fatalf("table fingerprint %x != expected %x", got, want)
	}
}

func TestSampler(t *testing.T) {
	s := &Sampler{Interval: 100 * time.Microsecond}

	if got := s.Stop(); got != 0 {
		t.Fatalf("Stop before Start = %d, want 0", got)
	}

	s.Start()
	// Hold an allocation across a few sample ticks. KeepAlive pins it past
	// Stop's synchronous sample; a plain read would let the collector free
	// it mid-measurement.
	buf := make([]byte, 8<<20)
	for i := range buf {
		buf[i] = byte(i)
	}
	time.Sleep(5 * time.Millisecond)
	peak := s.Stop()
	runtime.KeepAlive(buf)

	if peak < 1<<20 {
		t.Fatalf("peak = %d, want at least the held 8MiB allocation to register", peak)
	}

	// Reusable after Stop.
	s.Start()
	if s.Stop() > 1<<30 {
		t.Fatalf("idle restart reported implausible peak")
	}
}

// A load shorter than one ticker interval must still register its live
// allocations through Stop's synchronous sample.
func TestSamplerShortLoad(t *testing.T) {
	s := &Sampler{Interval: time.Hour} // the ticker never fires

	s.Start()
	buf := make([]byte, 8<<20)
	for i := range buf {
		buf[i] = byte(i)
	}
	peak := s.Stop()
	runtime.KeepAlive(buf)

	if peak < 1<<20 {
		t.Fatalf("peak = %d, want the live 8MiB allocation to register without a tick", peak)
	}
}

// The runner must mark every strategy verified when they all load the same
// dataset correctly.
func TestRunnerAllStrategiesVerified(t *testing.T) {
	repo, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	defer repo.Close()

	recs := testDataset(25)
	r := &Runner{
		Loader:     &storage.Loader{Store: repo},
		NewSource:  func() (source.Source, error) { return source.FromSlice(recs), nil },
		Strategies: DefaultStrategies(7, 64),
	}

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}

	first := results[0].Fingerprint
	for _, res := range results {
		if !res.Verified {
			t.Errorf("%s: not verified (rows=%d fp=%x)", res.Strategy, res.Rows, res.Fingerprint)
		}
		if res.Rows != int64(len(recs)) {
			t.Errorf("%s: rows = %d, want %d", res.Strategy, res.Rows, len(recs))
		}
		if res.Fingerprint != first {
			t.Errorf("%s: fingerprint %x differs from %s's %x",
				res.Strategy, res.Fingerprint, results[0].Strategy, first)
		}
	}
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteTable(&buf, []Result{
		{Strategy: "copy_stream", Rows: 325, Elapsed: 1234 * time.Millisecond, PeakAlloc: 9216, Verified: true},
	})
	if err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"STRATEGY", "copy_stream", "325", "9.0 KiB", "true"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 << 20, "3.0 MiB"},
		{1 << 30, "1.0 GiB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.in); got != tt.want {
			t.Fatalf("humanBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func testDataset(n int) []records.Record {
	recs := make([]records.Record, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, records.Record{
			"id":           float64(i + 1),
			"name":         fmt.Sprintf("Beer %d", i+1),
			"tagline":      "A Real Bitter Experience.",
			"first_brewed": "09/2007",
			"abv":          4.5,
			"volume":       map[string]any{"value": float64(20), "unit": "litres"},
		})
	}
	return recs
}
