package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// plainValue renders v for the console header: no quoting, local time.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		if v.Time().IsZero() {
			return ""
		}
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		switch value := v.Any().(type) {
		case error:
			return value.Error()
		case fmt.Stringer:
			return value.String()
		default:
			return fmt.Sprint(value)
		}
	default:
		return v.String()
	}
}

// bulletValue renders v for a "- key: value" line, quoting text that would
// otherwise be ambiguous.
func bulletValue(v slog.Value) string {
	s := plainValue(v)
	switch v.Kind() {
	case slog.KindString, slog.KindAny:
		if needsQuotes(s) {
			return strconv.Quote(s)
		}
	}
	return s
}

func needsQuotes(s string) bool {
	return s == "" || strings.IndexFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	}) >= 0
}
