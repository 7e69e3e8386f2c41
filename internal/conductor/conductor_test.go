package conductor_test

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"carillon/internal/bell"
	"carillon/internal/conductor"
	"carillon/internal/pitch"
	"carillon/internal/score"
	"carillon/internal/testsupport"
	"carillon/internal/waveform"
)

func newTable(t *testing.T, measure time.Duration) *waveform.Table {
	t.Helper()
	table, err := waveform.New(waveform.Options{SampleRate: 8000, Measure: measure})
	if err != nil {
		t.Fatalf("waveform.New: %v", err)
	}
	return table
}

func entries(pairs ...any) score.Score {
	s := score.Score{Name: "test"}
	for i := 0; i < len(pairs); i += 2 {
		s.Entries = append(s.Entries, score.Entry{
			Pitch:    pairs[i].(pitch.Pitch),
			Duration: pairs[i+1].(pitch.Duration),
		})
	}
	return s
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []int
	finished []int
	onFinish func(index int)
}

func (o *recordingObserver) NoteStarted(index int, _ score.Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, index)
}

func (o *recordingObserver) NoteFinished(index int, _ score.Entry, _ error) {
	o.mu.Lock()
	o.finished = append(o.finished, index)
	hook := o.onFinish
	o.mu.Unlock()
	if hook != nil {
		hook(index)
	}
}

func TestPlayWritesNotesInScoreOrder(t *testing.T) {
	table := newTable(t, 400*time.Millisecond)
	sink := &testsupport.RecordingSink{}
	c := conductor.New(table, sink)
	defer c.StopAll()

	s := entries(pitch.C4, pitch.Quarter, pitch.Rest, pitch.Eighth, pitch.E4, pitch.Half)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}

	lengths := sink.Lengths()
	wantLengths := []int{800, 400, 1600}
	if len(lengths) != len(wantLengths) {
		t.Fatalf("expected %d writes, got %v", len(wantLengths), lengths)
	}
	for i := range wantLengths {
		if lengths[i] != wantLengths[i] {
			t.Fatalf("write %d length = %d, want %d", i, lengths[i], wantLengths[i])
		}
	}
	got := sink.Pitches(table)
	want := []pitch.Pitch{pitch.C4, pitch.Rest, pitch.E4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write %d pitch = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPlayClampsToMeasure(t *testing.T) {
	table := newTable(t, 100*time.Millisecond)
	sink := &testsupport.RecordingSink{}
	c := conductor.New(table, sink)
	defer c.StopAll()

	s := entries(pitch.A4, pitch.Whole)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if lengths := sink.Lengths(); len(lengths) != 1 || lengths[0] != table.Len() {
		t.Fatalf("expected one full-buffer write of %d, got %v", table.Len(), lengths)
	}
}

func TestGapSamplesFollowEachNote(t *testing.T) {
	table := newTable(t, 400*time.Millisecond)
	sink := &testsupport.RecordingSink{}
	c := conductor.New(table, sink, conductor.WithGapSamples(50))
	defer c.StopAll()

	s := entries(pitch.C4, pitch.Quarter, pitch.C4, pitch.Quarter)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	got := sink.Lengths()
	want := []int{800, 50, 800, 50}
	if len(got) != len(want) {
		t.Fatalf("unexpected writes %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestLoadStartsOneBellPerDistinctPitch(t *testing.T) {
	table := newTable(t, 100*time.Millisecond)
	c := conductor.New(table, &testsupport.RecordingSink{})

	s := entries(pitch.C4, pitch.Quarter, pitch.D4, pitch.Quarter, pitch.C4, pitch.Eighth)
	pitches := append(s.Pitches(), pitch.C4, pitch.G4)
	if err := c.Load(s, pitches); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Bells() != 3 {
		t.Fatalf("expected 3 bells, got %d", c.Bells())
	}
	if err := c.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	counts := s.TurnCounts()
	for _, p := range []pitch.Pitch{pitch.C4, pitch.D4, pitch.G4} {
		b, ok := c.Bell(p)
		if !ok {
			t.Fatalf("missing bell for %s", p)
		}
		if b.Turns() != counts[p] {
			t.Fatalf("bell %s took %d turns, want %d", p, b.Turns(), counts[p])
		}
	}
	c.StopAll()
}

func TestLoadTwiceFails(t *testing.T) {
	table := newTable(t, 100*time.Millisecond)
	c := conductor.New(table, &testsupport.RecordingSink{})
	defer c.StopAll()

	s := entries(pitch.C4, pitch.Quarter)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Load(s, s.Pitches()); !errors.Is(err, conductor.ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", err)
	}
	if c.Bells() != 1 {
		t.Fatalf("second load must not start bells, got %d", c.Bells())
	}
}

func TestPlayBeforeLoad(t *testing.T) {
	c := conductor.New(newTable(t, 100*time.Millisecond), &testsupport.RecordingSink{})
	if err := c.Play(context.Background()); !errors.Is(err, conductor.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestStopAllIsIdempotentAndJoinsBells(t *testing.T) {
	table := newTable(t, 100*time.Millisecond)
	c := conductor.New(table, &testsupport.RecordingSink{})

	s := entries(pitch.C4, pitch.Quarter, pitch.E4, pitch.Quarter, pitch.G4, pitch.Quarter)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}

	c.StopAll()
	for _, p := range s.Pitches() {
		b, _ := c.Bell(p)
		select {
		case <-b.Done():
		default:
			t.Fatalf("bell %s still running after StopAll", p)
		}
		if b.State() != bell.StateTerminated {
			t.Fatalf("bell %s in state %s", p, b.State())
		}
	}
	c.StopAll()

	if err := c.Load(s, s.Pitches()); !errors.Is(err, conductor.ErrStopped) {
		t.Fatalf("expected ErrStopped after StopAll, got %v", err)
	}
}

func TestStopAllWithoutPlay(t *testing.T) {
	c := conductor.New(newTable(t, 100*time.Millisecond), &testsupport.RecordingSink{})
	s := entries(pitch.C4, pitch.Quarter, pitch.Rest, pitch.Quarter)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	done := make(chan struct{})
	go func() {
		c.StopAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StopAll did not return for idle bells")
	}
}

func TestPlayAfterStopAllPanics(t *testing.T) {
	c := conductor.New(newTable(t, 100*time.Millisecond), &testsupport.RecordingSink{})
	s := entries(pitch.C4, pitch.Quarter)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.StopAll()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, bell.ErrProtocolViolation) {
			t.Fatalf("expected protocol violation panic, got %v", r)
		}
	}()
	_ = c.Play(context.Background())
}

func TestPlayPanicsWhenPitchSetMissesScorePitch(t *testing.T) {
	c := conductor.New(newTable(t, 100*time.Millisecond), &testsupport.RecordingSink{})
	defer c.StopAll()
	s := entries(pitch.C4, pitch.Quarter, pitch.E4, pitch.Quarter)
	if err := c.Load(s, []pitch.Pitch{pitch.C4}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	defer func() {
		r := recover()
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, "no bell for E4") {
			t.Fatalf("expected missing bell panic, got %v", r)
		}
	}()
	_ = c.Play(context.Background())
}

func TestPlayReturnsSinkFailure(t *testing.T) {
	table := newTable(t, 100*time.Millisecond)
	sink := &testsupport.RecordingSink{FailAfter: 1}
	c := conductor.New(table, sink)
	defer c.StopAll()

	s := entries(pitch.C4, pitch.Quarter, pitch.D4, pitch.Quarter, pitch.E4, pitch.Quarter)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	err := c.Play(context.Background())
	if !errors.Is(err, testsupport.ErrSinkFailed) {
		t.Fatalf("expected sink failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "note 2 (D4 QUARTER)") {
		t.Fatalf("expected note position in error, got %v", err)
	}
	if b, _ := c.Bell(pitch.E4); b.Turns() != 0 {
		t.Fatal("notes after a failure must not be played")
	}
}

func TestPlayStopsAtNoteBoundaryOnCancel(t *testing.T) {
	table := newTable(t, 100*time.Millisecond)
	sink := &testsupport.RecordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	observer := &recordingObserver{onFinish: func(int) { cancel() }}
	c := conductor.New(table, sink, conductor.WithObserver(observer))
	defer c.StopAll()

	s := entries(pitch.C4, pitch.Quarter, pitch.D4, pitch.Quarter, pitch.E4, pitch.Quarter)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Play(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := len(sink.Lengths()); n != 1 {
		t.Fatalf("expected exactly one note before cancel, got %d", n)
	}
	if len(observer.started) != 1 || len(observer.finished) != 1 {
		t.Fatalf("unexpected observer calls %v / %v", observer.started, observer.finished)
	}
}

func TestConcurrentPlayRejected(t *testing.T) {
	table := newTable(t, 100*time.Millisecond)
	sink := &testsupport.RecordingSink{Delay: 20 * time.Millisecond}
	c := conductor.New(table, sink)
	defer c.StopAll()

	s := entries(pitch.C4, pitch.Quarter, pitch.D4, pitch.Quarter, pitch.E4, pitch.Quarter, pitch.F4, pitch.Quarter)
	if err := c.Load(s, s.Pitches()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	first := make(chan error, 1)
	go func() { first <- c.Play(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(sink.Lengths()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := c.Play(context.Background()); !errors.Is(err, conductor.ErrAlreadyPlaying) {
		t.Fatalf("expected ErrAlreadyPlaying, got %v", err)
	}
	if err := <-first; err != nil {
		t.Fatalf("first Play: %v", err)
	}
}

func TestRandomScoresNeverOverlap(t *testing.T) {
	table := newTable(t, 100*time.Millisecond)
	all := pitch.All()
	durations := pitch.Durations()
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 20; run++ {
		s := score.Score{Name: "random"}
		for i := 0; i < 300; i++ {
			s.Entries = append(s.Entries, score.Entry{
				Pitch:    all[rng.Intn(len(all))],
				Duration: durations[rng.Intn(len(durations))],
			})
		}

		sink := &testsupport.RecordingSink{}
		c := conductor.New(table, sink)
		if err := c.Load(s, all); err != nil {
			t.Fatalf("run %d: Load: %v", run, err)
		}
		if err := c.Play(context.Background()); err != nil {
			t.Fatalf("run %d: Play: %v", run, err)
		}
		c.StopAll()

		if sink.Overlaps() != 0 {
			t.Fatalf("run %d: %d overlapping writes", run, sink.Overlaps())
		}
		got := sink.Pitches(table)
		if len(got) != len(s.Entries) {
			t.Fatalf("run %d: %d writes for %d notes", run, len(got), len(s.Entries))
		}
		for i, entry := range s.Entries {
			if got[i] != entry.Pitch {
				t.Fatalf("run %d: write %d is %s, want %s", run, i, got[i], entry.Pitch)
			}
		}
	}
}
