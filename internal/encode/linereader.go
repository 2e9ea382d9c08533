package encode

// LineReader adapts a pull-based line generator to io.Reader so an encoded
// row stream can be handed directly to a store's bulk text-ingestion call.
//
// The adapter is a small explicit state machine: a pending tail of bytes not
// yet consumed, and an exhausted flag. On each Read it pulls lines from the
// generator only while the tail is empty, then serves up to len(p) bytes
// (capped at the configured buffer size) and keeps the remainder. Peak
// buffering is therefore bounded by one encoded line plus the requested read
// size, independent of how many rows the stream carries.
//
// A non-EOF generator error (for example a normalization failure mid-stream)
// is returned from Read and is sticky, which aborts the surrounding bulk
// ingest.
type LineReader struct {
	next func() (string, error)
	tail []byte
	err  error // sticky; io.EOF marks normal exhaustion
	max  int
}

// NewLineReader returns a LineReader over next. The generator yields one
// encoded line per call and io.EOF when the stream is exhausted. bufSize
// bounds the bytes served per Read call; non-positive means "whatever the
// caller's buffer holds".
func NewLineReader(next func() (string, error), bufSize int) *LineReader {
	return &LineReader{next: next, max: bufSize}
}

func (r *LineReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.max > 0 && len(p) > r.max {
		p = p[:r.max]
	}

	for len(r.tail) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		line, err := r.next()
		if err != nil {
			r.err = err
			return 0, r.err
		}
		r.tail = []byte(line)
	}

	n := copy(p, r.tail)
	r.tail = r.tail[n:]
	return n, nil
}

// Buffered reports the bytes currently pending between reads. Exposed for
// tests asserting the adapter's memory bound.
func (r *LineReader) Buffered() int {
	return len(r.tail)
}
