package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// pagedHandler serves total records split into pageSize pages, mirroring the
// page / per_page query contract.
func pagedHandler(t *testing.T, total int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
		if err != nil || perPage < 1 {
			http.Error(w, "bad per_page", http.StatusBadRequest)
			return
		}

		start := (page - 1) * perPage
		var out []map[string]any
		for i := start; i < start+perPage && i < total; i++ {
			out = append(out, map[string]any{
				"id":           i + 1,
				"name":         fmt.Sprintf("beer-%d", i+1),
				"first_brewed": "09/2007",
				"volume":       map[string]any{"value": 20, "unit": "litres"},
			})
		}
		if out == nil {
			out = []map[string]any{}
		}
		if err := json.NewEncoder(w).Encode(out); err != nil {
			t.Errorf("encode page: %v", err)
		}
	}
}

func TestAPIPagination(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(pagedHandler(t, 7))
	defer srv.Close()

	src := NewAPI(context.Background(), APIConfig{BaseURL: srv.URL, PageSize: 3})

	var ids []int64
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		id, ok := rec.Int("id")
		if !ok {
			t.Fatalf("record without id: %v", rec)
		}
		ids = append(ids, id)
	}

	if len(ids) != 7 {
		t.Fatalf("got %d records, want 7", len(ids))
	}
	for i, id := range ids {
		if id != int64(i+1) {
			t.Fatalf("record %d has id %d; order not preserved", i, id)
		}
	}
}

func TestAPIRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	inner := pagedHandler(t, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fail the first two attempts of the first page.
		if hits.Add(1) <= 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		inner(w, r)
	}))
	defer srv.Close()

	src := NewAPI(context.Background(), APIConfig{
		BaseURL:        srv.URL,
		PageSize:       25,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	src.sleep = func(time.Duration) {}

	recs, err := Drain(src)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if got := hits.Load(); got < 3 {
		t.Fatalf("server hit %d times, want >= 3 (2 failures + success)", got)
	}
}

func TestAPIGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewAPI(context.Background(), APIConfig{
		BaseURL:        srv.URL,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	})
	src.sleep = func(time.Duration) {}

	if _, err := src.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("Next = %v, want terminal fetch error", err)
	}
}

func TestAPINonRetryableStatusIsFinal(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewAPI(context.Background(), APIConfig{BaseURL: srv.URL, MaxRetries: 3})
	src.sleep = func(time.Duration) {}

	if _, err := src.Next(); err == nil {
		t.Fatal("Next: want error on 404")
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hit %d times, want 1 (no retry on 404)", got)
	}
}

func TestAPIContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(pagedHandler(t, 2))
	defer srv.Close()

	src := NewAPI(ctx, APIConfig{BaseURL: srv.URL})
	if _, err := src.Next(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Next = %v, want context.Canceled", err)
	}
}
