package midiexport_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"carillon/internal/midiexport"
	"carillon/internal/pitch"
	"carillon/internal/score"
)

type note struct {
	key   uint8
	start uint32
	end   uint32
}

func readNotes(t *testing.T, data []byte) ([]note, float64) {
	t.Helper()
	file, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("smf.ReadFrom: %v", err)
	}
	if len(file.Tracks) != 1 {
		t.Fatalf("expected one track, got %d", len(file.Tracks))
	}

	var (
		notes []note
		open  = map[uint8]uint32{}
		tick  uint32
		bpm   float64
	)
	for _, ev := range file.Tracks[0] {
		tick += ev.Delta
		var ch, key, vel uint8
		msg := midi.Message(ev.Message)
		switch {
		case ev.Message.GetMetaTempo(&bpm):
		case msg.GetNoteStart(&ch, &key, &vel):
			open[key] = tick
		case msg.GetNoteEnd(&ch, &key):
			notes = append(notes, note{key: key, start: open[key], end: tick})
			delete(open, key)
		}
	}
	return notes, bpm
}

func TestExportRoundTrip(t *testing.T) {
	s := score.Score{Name: "round-trip", Entries: []score.Entry{
		{Pitch: pitch.C4, Duration: pitch.Quarter},
		{Pitch: pitch.Rest, Duration: pitch.Eighth},
		{Pitch: pitch.E4, Duration: pitch.Half},
		{Pitch: pitch.E4, Duration: pitch.Sixteenth},
	}}
	opts := midiexport.Options{Velocity: 100, Measure: 2 * time.Second}

	var buf bytes.Buffer
	if _, err := midiexport.Export(&buf, s, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}
	notes, bpm := readNotes(t, buf.Bytes())

	if math.Abs(bpm-120) > 0.01 {
		t.Fatalf("expected derived tempo 120, got %v", bpm)
	}
	c4, _ := pitch.C4.MIDIKey()
	e4, _ := pitch.E4.MIDIKey()
	want := []note{
		{key: c4, start: 0, end: 960},
		{key: e4, start: 1440, end: 3360},
		{key: e4, start: 3360, end: 3600},
	}
	if len(notes) != len(want) {
		t.Fatalf("expected %d notes, got %+v", len(want), notes)
	}
	for i := range want {
		if notes[i] != want[i] {
			t.Fatalf("note %d = %+v, want %+v", i, notes[i], want[i])
		}
	}
}

func TestTempoOverride(t *testing.T) {
	opts := midiexport.Options{TempoBPM: 90, Velocity: 64, Measure: 2 * time.Second}
	if opts.Tempo() != 90 {
		t.Fatalf("expected explicit tempo, got %v", opts.Tempo())
	}
	opts.TempoBPM = 0
	opts.Measure = time.Second
	if opts.Tempo() != 240 {
		t.Fatalf("expected 240 bpm for a one-second measure, got %v", opts.Tempo())
	}
}

func TestTicks(t *testing.T) {
	cases := map[pitch.Duration]uint32{
		pitch.Whole:     3840,
		pitch.Half:      1920,
		pitch.Quarter:   960,
		pitch.Triplet:   640,
		pitch.Eighth:    480,
		pitch.Sixteenth: 240,
	}
	for d, want := range cases {
		if got := midiexport.Ticks(d.Fraction()); got != want {
			t.Fatalf("Ticks(%s) = %d, want %d", d, got, want)
		}
	}
}

func TestBuildRejectsBadOptions(t *testing.T) {
	s := score.Score{Entries: []score.Entry{{Pitch: pitch.C4, Duration: pitch.Quarter}}}
	if _, err := midiexport.Build(s, midiexport.Options{Velocity: 100, Channel: 16}); err == nil {
		t.Fatal("expected channel error")
	}
	if _, err := midiexport.Build(s, midiexport.Options{Velocity: 0}); err == nil {
		t.Fatal("expected velocity error")
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "scale.mid")
	s := score.Score{Entries: []score.Entry{{Pitch: pitch.A4, Duration: pitch.Whole}}}
	if err := midiexport.WriteFile(path, s, midiexport.Options{Velocity: 100, Measure: 2 * time.Second}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("MThd")) {
		t.Fatalf("expected SMF header, got %q", data[:4])
	}
	notes, _ := readNotes(t, data)
	if len(notes) != 1 || notes[0].key != 69 || notes[0].end != 3840 {
		t.Fatalf("unexpected notes %+v", notes)
	}
}
