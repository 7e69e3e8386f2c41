package bell_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"carillon/internal/bell"
	"carillon/internal/pitch"
)

type recordingSink struct {
	mu     sync.Mutex
	writes []int
	err    error
}

func (s *recordingSink) Write(buf []byte, offset, length int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, length)
	return nil
}

func (s *recordingSink) lengths() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.writes...)
}

// gateSink parks every write until the test releases it.
type gateSink struct {
	entered chan struct{}
	release chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (s *gateSink) Write([]byte, int, int) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func newBell(t *testing.T, sink bell.Sink, gap int) *bell.Bell {
	t.Helper()
	samples := make([]byte, 500)
	b := bell.New(bell.Config{
		Pitch:   pitch.C4,
		Samples: samples,
		Gap:     make([]byte, gap),
		Sink:    sink,
		Timing:  bell.Timing{SampleRate: 1000, MaxNote: 500 * time.Millisecond},
	})
	b.Start()
	return b
}

func expectProtocolPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatal("expected protocol violation panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, bell.ErrProtocolViolation) {
			t.Fatalf("expected ErrProtocolViolation, got %v", r)
		}
		var perr *bell.ProtocolError
		if !errors.As(err, &perr) || perr.Pitch != pitch.C4 {
			t.Fatalf("expected *ProtocolError for C4, got %#v", r)
		}
	}()
	fn()
}

func waitDone(t *testing.T, b *bell.Bell) {
	t.Helper()
	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bell did not terminate")
	}
}

func TestTimingSampleCount(t *testing.T) {
	timing := bell.Timing{SampleRate: 49152, MaxNote: 2 * time.Second}
	cases := []struct {
		d    time.Duration
		want int
	}{
		{500 * time.Millisecond, 24576},
		{2 * time.Second, 98304},
		{5 * time.Second, 98304},
		{1500 * time.Microsecond, 49},
		{0, 0},
		{-time.Second, 0},
	}
	for _, tc := range cases {
		if got := timing.SampleCount(tc.d); got != tc.want {
			t.Fatalf("SampleCount(%s) = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestGiveTurnClampsToBuffer(t *testing.T) {
	sink := &recordingSink{}
	b := newBell(t, sink, 0)
	defer func() {
		b.Stop()
		waitDone(t, b)
	}()

	if err := b.GiveTurn(250 * time.Millisecond); err != nil {
		t.Fatalf("GiveTurn returned error: %v", err)
	}
	if err := b.GiveTurn(3 * time.Second); err != nil {
		t.Fatalf("GiveTurn returned error: %v", err)
	}
	got := sink.lengths()
	if len(got) != 2 || got[0] != 250 || got[1] != 500 {
		t.Fatalf("unexpected writes %v", got)
	}
	if b.Turns() != 2 {
		t.Fatalf("expected 2 turns, got %d", b.Turns())
	}
	if b.State() != bell.StateIdle {
		t.Fatalf("expected idle between turns, got %s", b.State())
	}
}

func TestGapFollowsEveryNote(t *testing.T) {
	sink := &recordingSink{}
	b := newBell(t, sink, 7)
	defer func() {
		b.Stop()
		waitDone(t, b)
	}()

	for i := 0; i < 3; i++ {
		if err := b.GiveTurn(100 * time.Millisecond); err != nil {
			t.Fatalf("GiveTurn returned error: %v", err)
		}
	}
	got := sink.lengths()
	want := []int{100, 7, 100, 7, 100, 7}
	if len(got) != len(want) {
		t.Fatalf("unexpected writes %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write %d = %d, want %d (all %v)", i, got[i], want[i], got)
		}
	}
}

func TestSinkErrorReturnedFromTurn(t *testing.T) {
	boom := errors.New("device unplugged")
	sink := &recordingSink{err: boom}
	b := newBell(t, sink, 0)
	defer func() {
		b.Stop()
		waitDone(t, b)
	}()

	err := b.GiveTurn(100 * time.Millisecond)
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if b.Turns() != 1 {
		t.Fatalf("failed write still counts as a turn, got %d", b.Turns())
	}
}

func TestSecondTurnWhilePendingPanics(t *testing.T) {
	sink := newGateSink()
	b := newBell(t, sink, 0)

	first := make(chan error, 1)
	go func() { first <- b.GiveTurn(100 * time.Millisecond) }()
	<-sink.entered

	if !b.TurnPending() || b.State() != bell.StateRinging {
		t.Fatalf("expected pending turn while ringing, state %s", b.State())
	}
	expectProtocolPanic(t, func() { _ = b.GiveTurn(100 * time.Millisecond) })

	close(sink.release)
	if err := <-first; err != nil {
		t.Fatalf("first turn returned error: %v", err)
	}
	b.Stop()
	waitDone(t, b)
}

func TestStopWhileIdleTerminates(t *testing.T) {
	b := newBell(t, &recordingSink{}, 0)
	b.Stop()
	waitDone(t, b)
	if b.State() != bell.StateTerminated {
		t.Fatalf("expected terminated, got %s", b.State())
	}
	if b.Turns() != 0 {
		t.Fatalf("stop must not be treated as a turn, got %d turns", b.Turns())
	}
}

func TestStopDuringTurnLetsNoteFinish(t *testing.T) {
	sink := newGateSink()
	b := newBell(t, sink, 0)

	result := make(chan error, 1)
	go func() { result <- b.GiveTurn(100 * time.Millisecond) }()
	<-sink.entered

	b.Stop()
	select {
	case <-b.Done():
		t.Fatal("bell exited before finishing its note")
	case <-time.After(20 * time.Millisecond):
	}

	close(sink.release)
	if err := <-result; err != nil {
		t.Fatalf("turn returned error: %v", err)
	}
	waitDone(t, b)
	if b.Turns() != 1 {
		t.Fatalf("expected the in-flight note to complete, got %d turns", b.Turns())
	}
}

func TestTurnAfterStopPanics(t *testing.T) {
	b := newBell(t, &recordingSink{}, 0)
	b.Stop()
	waitDone(t, b)
	expectProtocolPanic(t, func() { _ = b.GiveTurn(time.Millisecond) })
}

func TestStopTwicePanics(t *testing.T) {
	b := newBell(t, &recordingSink{}, 0)
	b.Stop()
	expectProtocolPanic(t, b.Stop)
	waitDone(t, b)
}

func TestStartTwicePanics(t *testing.T) {
	b := newBell(t, &recordingSink{}, 0)
	expectProtocolPanic(t, b.Start)
	b.Stop()
	waitDone(t, b)
}
