package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"carillon/internal/preflight"
)

type level int

const (
	levelInfo level = iota
	levelOK
	levelWarn
	levelFail
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
)

var levelStyles = [...]struct{ tag, color string }{
	levelInfo: {"INFO", "\x1b[36m"},
	levelOK:   {"OK", "\x1b[32m"},
	levelWarn: {"WARN", "\x1b[33m"},
	levelFail: {"FAIL", "\x1b[31m"},
}

// labelColumn is wide enough for the longest preflight check name.
const labelColumn = 18

// formatStatus renders "  Label:     [TAG] message" with the tag coloured.
func formatStatus(label string, lvl level, message string, color bool) string {
	style := levelStyles[lvl]
	tag := "[" + style.tag + "]"
	if color {
		tag = style.color + tag + ansiReset
	}
	line := fmt.Sprintf("  %-*s %s", labelColumn, label+":", tag)
	if message != "" {
		line += " " + message
	}
	return line
}

// report writes sectioned status output for the check command.
type report struct {
	w     io.Writer
	color bool
}

func newReport(w io.Writer) *report {
	return &report{w: w, color: isTerminal(w)}
}

func (r *report) section(title string) {
	heading := strings.ToUpper(strings.TrimSpace(title))
	if r.color {
		heading = ansiBold + heading + ansiReset
	}
	fmt.Fprintln(r.w, heading)
}

func (r *report) line(label string, lvl level, message string) {
	fmt.Fprintln(r.w, formatStatus(label, lvl, message, r.color))
}

func (r *report) blank() {
	fmt.Fprintln(r.w)
}

// preflight writes one line per check followed by a tally.
func (r *report) preflight(results []preflight.Result) {
	failed := 0
	for _, res := range results {
		lvl := levelOK
		if !res.Passed {
			lvl = levelFail
			failed++
		}
		r.line(res.Name, lvl, res.Detail)
	}
	tally := levelOK
	if failed > 0 {
		tally = levelFail
	}
	r.line("Result", tally, fmt.Sprintf("%d of %d checks passed", len(results)-failed, len(results)))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
