// Package encode serializes normalized rows into the delimited text
// representation consumed by the store's bulk text-load path.
//
// The encoding must agree exactly with the store-side parser on three
// things: the delimiter, the null sentinel, and the escape rules. The
// defaults below match the Postgres COPY text format with a '|' delimiter
// ('|' is chosen over ',' because several staging fields are free text that
// routinely contains commas). Embedded newlines are escaped to the
// two-character literal `\n`, so one record always occupies exactly one
// line. Backslash, carriage return, tab and the delimiter itself are
// escaped the same way, keeping the stream invertible for any field
// content.
package encode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stageload/internal/normalize"
)

const (
	// Delimiter separates the fields of one encoded row.
	Delimiter byte = '|'

	// NullToken is the store's null sentinel for absent values.
	NullToken = `\N`
)

// EncodeRow renders one normalized row as a single delimited line,
// newline-terminated.
func EncodeRow(row *normalize.Row, delim byte) string {
	var b strings.Builder
	for i, v := range row.Values() {
		if i > 0 {
			b.WriteByte(delim)
		}
		b.WriteString(encodeField(v, delim))
	}
	b.WriteByte('\n')
	return b.String()
}

// encodeField renders a single statement argument as COPY text.
func encodeField(v any, delim byte) string {
	switch t := v.(type) {
	case nil:
		return NullToken
	case string:
		return escapeText(t, delim)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return escapeText(fmt.Sprint(t), delim)
	}
}

// escapeText replaces characters that would break the one-record-one-line
// framing or the field split with two-character backslash literals.
func escapeText(s string, delim byte) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case delim:
			b.WriteByte('\\')
			b.WriteByte(delim)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// DecodeLine is the exact inverse of EncodeRow's framing: it splits one line
// (without its trailing newline) into fields and unescapes them. Null
// sentinels decode to nil; every other field decodes to its string form.
// Typing is left to the destination store.
func DecodeLine(line string, delim byte) []any {
	raw := splitFields(line, delim)
	out := make([]any, len(raw))
	for i, f := range raw {
		if f == NullToken {
			out[i] = nil
			continue
		}
		out[i] = unescapeText(f, delim)
	}
	return out
}

// splitFields splits on unescaped delimiters, keeping escape sequences
// intact so the null sentinel remains distinguishable from an escaped "N".
func splitFields(line string, delim byte) []string {
	var fields []string
	start := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++ // skip the escaped character
		case delim:
			fields = append(fields, line[start:i])
			start = i + 1
		}
	}
	return append(fields, line[start:])
}

func unescapeText(s string, delim byte) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			// Backslash, delimiter, or any other escaped byte stands for
			// itself.
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
