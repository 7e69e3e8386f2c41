package logs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RunLogPath returns where the performance runner writes the log for runID.
func RunLogPath(logDir, runID string) string {
	return filepath.Join(logDir, "carillon-"+runID+".log")
}

// Latest returns the most recently modified run log in logDir.
func Latest(logDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(logDir, "carillon-*.log"))
	if err != nil {
		return "", err
	}
	var newest string
	var newestMod time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = path, info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no run logs in %s", logDir)
	}
	return newest, nil
}

// envelope keys are printed in the line prefix, not as key=value pairs.
var envelope = map[string]bool{
	"ts": true, "level": true, "msg": true, "source": true,
	"component": true, "run_id": true,
}

// Format renders one JSON log record as
// "15:04:05 LEVEL [component] message key=value ...". Lines that are not
// JSON objects are returned unchanged.
func Format(line string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return line
	}

	var b strings.Builder
	if ts, ok := record["ts"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			ts = parsed.Local().Format("15:04:05")
		}
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	level, _ := record["level"].(string)
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(level))
	if component, ok := record["component"].(string); ok && component != "" {
		fmt.Fprintf(&b, " [%s]", component)
	}
	if msg, ok := record["msg"].(string); ok {
		b.WriteByte(' ')
		b.WriteString(msg)
	}

	keys := make([]string, 0, len(record))
	for k := range record {
		if !envelope[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, formatField(record[k]))
	}
	return b.String()
}

func formatField(v any) string {
	switch value := v.(type) {
	case string:
		if value == "" || strings.ContainsAny(value, " \t\"=") {
			return fmt.Sprintf("%q", value)
		}
		return value
	case nil:
		return "null"
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	}
}
