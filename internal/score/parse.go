package score

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"carillon/internal/pitch"
)

// ErrEmpty indicates a score with no playable entries.
var ErrEmpty = errors.New("score has no entries")

// ParseError describes one rejected line.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s (%q)", e.Line, e.Reason, e.Text)
}

// Parse reads a score. Each non-blank line holds a pitch and a duration
// separated by whitespace or a comma, e.g. "C4 QUARTER" or "C4, QUARTER".
// Text after '#' is ignored. Every bad line is reported; the returned error
// joins one *ParseError per line.
func Parse(r io.Reader) (Score, error) {
	var (
		entries []Entry
		errs    []error
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := raw
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entry, reason := parseLine(line)
		if reason != "" {
			errs = append(errs, &ParseError{Line: lineNo, Text: strings.TrimSpace(raw), Reason: reason})
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return Score{}, fmt.Errorf("read score: %w", err)
	}
	if len(errs) > 0 {
		return Score{}, errors.Join(errs...)
	}
	if len(entries) == 0 {
		return Score{}, ErrEmpty
	}
	return Score{Entries: entries}, nil
}

func parseLine(line string) (Entry, string) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) != 2 {
		return Entry{}, fmt.Sprintf("expected 2 fields (pitch, duration), found %d", len(fields))
	}
	p, err := pitch.Parse(fields[0])
	if err != nil {
		return Entry{}, fmt.Sprintf("unknown pitch %q", fields[0])
	}
	d, err := pitch.ParseDuration(fields[1])
	if err != nil {
		return Entry{}, fmt.Sprintf("unknown duration %q", fields[1])
	}
	return Entry{Pitch: p, Duration: d}, ""
}

// Load parses the score at path and names it after the file.
func Load(path string) (Score, error) {
	file, err := os.Open(path)
	if err != nil {
		return Score{}, fmt.Errorf("open score: %w", err)
	}
	defer file.Close()

	s, err := Parse(file)
	if err != nil {
		return Score{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return s, nil
}

// Hash returns the hex SHA-256 of the file at path, used to recognise repeat
// performances of the same score.
func Hash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open score: %w", err)
	}
	defer file.Close()
	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash score: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LineErrors unpacks the per-line failures from an error returned by Parse
// or Load.
func LineErrors(err error) []*ParseError {
	if err == nil {
		return nil
	}
	var out []*ParseError
	var walk func(error)
	walk = func(e error) {
		switch unwrapped := e.(type) {
		case *ParseError:
			out = append(out, unwrapped)
		case interface{ Unwrap() []error }:
			for _, inner := range unwrapped.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(unwrapped.Unwrap())
		}
	}
	walk(err)
	return out
}
