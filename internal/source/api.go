package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stageload/internal/records"
)

// APIConfig configures the paginated HTTP record source.
//
// Zero values get sensible defaults:
//   - PageSize:       25
//   - Timeout:        30s
//   - MaxRetries:     3
//   - InitialBackoff: 200ms
//   - MaxBackoff:     5s
type APIConfig struct {
	// BaseURL is the collection endpoint; "page" and "per_page" query
	// parameters are appended per request.
	BaseURL string

	// PageSize is the number of records requested per page.
	PageSize int

	// Timeout is the per-request timeout at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request.
	MaxRetries int

	// InitialBackoff is the first retry's backoff; each subsequent retry
	// doubles it up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Transport optionally overrides the RoundTripper (test seam).
	Transport http.RoundTripper
}

// API is a pull-based Source over a paginated HTTP collection. Pages are
// fetched lazily as Next drains them; an empty page ends the stream.
// Transient failures (transport errors, 429, 5xx) are retried with
// exponential backoff.
type API struct {
	ctx    context.Context
	cfg    APIConfig
	client *http.Client

	page int
	buf  []records.Record
	pos  int
	done bool

	// sleep is injectable to make retry tests fast and deterministic.
	sleep func(time.Duration)
}

// NewAPI constructs an API source. ctx bounds every page fetch issued by
// Next for the lifetime of the stream.
func NewAPI(ctx context.Context, cfg APIConfig) *API {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return &API{
		ctx: ctx,
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		page:  1,
		sleep: time.Sleep,
	}
}

// Next returns the next record in source order, fetching the following page
// when the current one is drained. io.EOF marks the end of the collection.
func (a *API) Next() (records.Record, error) {
	for a.pos >= len(a.buf) {
		if a.done {
			return nil, io.EOF
		}
		page, err := a.fetchPage(a.page)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			a.done = true
			return nil, io.EOF
		}
		a.buf = page
		a.pos = 0
		a.page++
	}
	rec := a.buf[a.pos]
	a.pos++
	return rec, nil
}

func (a *API) fetchPage(page int) ([]records.Record, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(a.cfg.PageSize))
	pageURL := a.cfg.BaseURL + "?" + q.Encode()

	attempts := a.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := a.ctx.Err(); err != nil {
			return nil, err
		}

		recs, retryable, err := a.getOnce(pageURL)
		if err == nil {
			return recs, nil
		}
		lastErr = err
		if !retryable || attempt+1 >= attempts {
			return nil, fmt.Errorf("source: fetch page %d: %w", page, lastErr)
		}

		if err := a.waitBackoff(attempt); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("source: fetch page %d: %w", page, lastErr)
}

// getOnce performs a single page request. The second return reports whether
// the failure is worth retrying.
func (a *API) getOnce(pageURL string) ([]records.Record, bool, error) {
	req, err := http.NewRequestWithContext(a.ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if isRetryableStatus(resp.StatusCode) {
		return nil, true, fmt.Errorf("retryable status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var recs []records.Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, false, fmt.Errorf("decode page: %w", err)
	}
	return recs, false, nil
}

func (a *API) waitBackoff(attempt int) error {
	d := a.cfg.InitialBackoff << attempt
	if d > a.cfg.MaxBackoff {
		d = a.cfg.MaxBackoff
	}
	done := make(chan struct{})
	go func() {
		a.sleep(d)
		close(done)
	}()
	select {
	case <-a.ctx.Done():
		return a.ctx.Err()
	case <-done:
		return nil
	}
}

// isRetryableStatus is intentionally conservative: 5xx and 429 are treated
// as transient; everything else is final.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}
