package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler writes one header line per record followed by an indented
// bullet per field:
//
//	2026-03-01 12:00:00 INFO [conductor] Note #3 (E4) – note rung
//	    - samples: 24576
//
// Pitch and note index move into the header; event_type and run_id are
// machine fields shown only at debug level.
type prettyHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     *slog.LevelVar
	addSource bool

	// preset holds attrs from WithAttrs, already flattened under the group
	// prefix that was open when they were added.
	preset []field
	prefix string
}

type field struct {
	key   string
	value slog.Value
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, w: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]field, 0, len(h.preset)+record.NumAttrs())
	fields = append(fields, h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFlattened(fields, h.prefix, attr)
		return true
	})
	fields = lastWins(fields)

	debug := record.Level < slog.LevelInfo
	var component, pitchName, noteIndex string
	body := fields[:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = plainValue(f.value)
			continue
		case FieldPitch:
			pitchName = plainValue(f.value)
		case FieldNoteIndex:
			noteIndex = plainValue(f.value)
		}
		if debug || !infoHidden(f.key) {
			body = append(body, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.WriteString(ts.Local().Format(consoleTimeLayout))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if component != "" {
		buf.WriteString(" [" + component + "]")
	}
	if subject := noteSubject(noteIndex, pitchName); subject != "" {
		buf.WriteString(" " + subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if h.addSource {
		if record.PC != 0 {
			src, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
			buf.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}
	buf.WriteByte('\n')
	for _, f := range body {
		buf.WriteString("    - " + f.key + ": " + bulletValue(f.value) + "\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func infoHidden(key string) bool {
	switch key {
	case FieldEventType, FieldRunID, FieldPitch, FieldNoteIndex:
		return true
	}
	return false
}

func noteSubject(noteIndex, pitchName string) string {
	noteIndex = strings.TrimSpace(noteIndex)
	pitchName = strings.TrimSpace(pitchName)
	switch {
	case noteIndex != "" && pitchName != "":
		return "Note #" + noteIndex + " (" + pitchName + ")"
	case noteIndex != "":
		return "Note #" + noteIndex
	case pitchName != "":
		return "Bell " + pitchName
	}
	return ""
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append([]field(nil), h.preset...)
	for _, attr := range attrs {
		next.preset = appendFlattened(next.preset, h.prefix, attr)
	}
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

// appendFlattened expands groups into dotted keys.
func appendFlattened(dst []field, prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = joinKey(prefix, attr.Key)
		}
		for _, member := range value.Group() {
			dst = appendFlattened(dst, groupPrefix, member)
		}
		return dst
	}
	if attr.Key == "" {
		return dst
	}
	return append(dst, field{key: joinKey(prefix, attr.Key), value: value})
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// lastWins drops earlier duplicates of a key, keeping the first position.
func lastWins(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, seen := index[f.key]; seen {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	return strings.ToUpper(jsonLevel(level))
}
