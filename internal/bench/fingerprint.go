package bench

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"stageload/internal/normalize"
	"stageload/internal/records"

	"github.com/zeebo/xxh3"
)

// Fingerprint hashes result rows independent of their order, so backends
// with unspecified SELECT ordering still compare equal. Each row is
// canonicalized to one line, the lines are sorted, and the whole sequence
// is hashed with xxh3.
func Fingerprint(rows [][]any) uint64 {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = canonicalRow(row)
	}
	sort.Strings(lines)

	h := xxh3.New()
	for _, line := range lines {
		_, _ = h.WriteString(line)
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}

// Expected computes the fingerprint the staging table must carry after
// loading recs, by normalizing the records the same way every strategy
// does.
func Expected(recs []records.Record) (uint64, error) {
	rows := make([][]any, len(recs))
	for i, rec := range recs {
		row, err := normalize.Normalize(rec)
		if err != nil {
			return 0, err
		}
		rows[i] = row.Values()
	}
	return Fingerprint(rows), nil
}

// canonicalRow folds backend-specific value types into one textual form:
// integers of any width print the same, floats use the shortest 'g' form,
// and dates collapse to "YYYY-MM-DD" whether they arrive as time.Time or
// text.
func canonicalRow(row []any) string {
	var b strings.Builder
	for i, v := range row {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(canonicalField(v))
	}
	return b.String()
}

func canonicalField(v any) string {
	switch t := v.(type) {
	case nil:
		return `\N`
	case string:
		return t
	case []byte:
		return string(t)
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(t)
	}
}
