package bell

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"carillon/internal/logging"
	"carillon/internal/pitch"
)

// Sink receives the samples a bell emits during its turn.
type Sink interface {
	Write(buf []byte, offset, length int) error
}

// Timing converts note durations into sample counts.
type Timing struct {
	SampleRate int
	// MaxNote caps every note; it equals the length of a waveform buffer.
	MaxNote time.Duration
}

// SampleCount returns min(d, MaxNote) worth of samples, truncated to whole
// milliseconds first.
func (t Timing) SampleCount(d time.Duration) int {
	ms := d.Milliseconds()
	if limit := t.MaxNote.Milliseconds(); ms > limit {
		ms = limit
	}
	if ms <= 0 {
		return 0
	}
	return int(ms * int64(t.SampleRate) / 1000)
}

// Config describes one bell.
type Config struct {
	Pitch   pitch.Pitch
	Samples []byte
	// Gap is written after every note. May be empty.
	Gap    []byte
	Sink   Sink
	Timing Timing
	Logger *slog.Logger
}

// Bell owns one pitch and rings it whenever the conductor hands it a turn.
//
// The only state shared with the conductor is turnPending and running, both
// guarded by mu and signalled through cond. duration and result ride along
// under the same lock as the turn's arguments and return value.
type Bell struct {
	pitch   pitch.Pitch
	samples []byte
	gap     []byte
	sink    Sink
	timing  Timing
	logger  *slog.Logger

	mu          sync.Mutex
	cond        *sync.Cond
	started     bool
	running     bool
	turnPending bool
	duration    time.Duration
	result      error
	state       State
	turns       int

	done chan struct{}
}

// New constructs a parked bell. Call Start to launch its goroutine.
func New(cfg Config) *Bell {
	if cfg.Sink == nil {
		panic(fmt.Sprintf("bell %s: nil sink", cfg.Pitch))
	}
	b := &Bell{
		pitch:   cfg.Pitch,
		samples: cfg.Samples,
		gap:     cfg.Gap,
		sink:    cfg.Sink,
		timing:  cfg.Timing,
		logger:  logging.NewComponentLogger(cfg.Logger, "bell").With(logging.String(logging.FieldPitch, cfg.Pitch.String())),
		done:    make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Start launches the bell goroutine. A bell starts at most once.
func (b *Bell) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		violate(b.pitch, "started twice")
	}
	b.started = true
	b.running = true
	b.state = StateIdle
	go b.run()
}

// GiveTurn hands the bell one note of length d and blocks until the bell has
// written it. The returned error is the sink failure, if any, for that note.
//
// Giving a turn while one is pending, or to a bell that is not running,
// panics with a *ProtocolError.
func (b *Bell) GiveTurn(d time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		violate(b.pitch, "turn given to a bell that is not running")
	}
	if b.turnPending {
		violate(b.pitch, "turn given while another turn is pending")
	}

	b.duration = d
	b.result = nil
	b.turnPending = true
	b.state = StateRinging
	b.cond.Broadcast()

	for b.turnPending {
		b.cond.Wait()
	}
	return b.result
}

// Stop asks the bell goroutine to exit once it is between turns. A note
// already being written runs to completion. Stop may be called once.
func (b *Bell) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		violate(b.pitch, "stopped before it was started")
	}
	if !b.running {
		violate(b.pitch, "stopped twice")
	}
	b.running = false
	if b.state == StateIdle {
		b.state = StateStopping
	}
	b.cond.Broadcast()
}

// Wait blocks until the bell goroutine has exited.
func (b *Bell) Wait() {
	<-b.done
}

// Done is closed when the bell goroutine exits.
func (b *Bell) Done() <-chan struct{} {
	return b.done
}

func (b *Bell) run() {
	defer close(b.done)

	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		for !b.turnPending && b.running {
			b.cond.Wait()
		}
		if !b.turnPending {
			b.state = StateTerminated
			b.logger.Debug("bell stopped",
				logging.String(logging.FieldEventType, "bell_stopped"),
				logging.Int("turns", b.turns),
			)
			return
		}

		d := b.duration
		b.mu.Unlock()
		err := b.ring(d)
		b.mu.Lock()

		b.result = err
		b.turns++
		b.turnPending = false
		if b.running {
			b.state = StateIdle
		} else {
			b.state = StateStopping
		}
		b.cond.Broadcast()
	}
}

func (b *Bell) ring(d time.Duration) error {
	n := b.timing.SampleCount(d)
	if n > len(b.samples) {
		n = len(b.samples)
	}
	b.logger.Debug("bell ringing",
		logging.String(logging.FieldEventType, "bell_ringing"),
		logging.Duration("duration", d),
		logging.Int("samples", n),
	)
	if n > 0 {
		if err := b.sink.Write(b.samples, 0, n); err != nil {
			return fmt.Errorf("bell %s: write %d samples: %w", b.pitch, n, err)
		}
	}
	if len(b.gap) > 0 {
		if err := b.sink.Write(b.gap, 0, len(b.gap)); err != nil {
			return fmt.Errorf("bell %s: write gap: %w", b.pitch, err)
		}
	}
	return nil
}

// Pitch reports the bell's pitch.
func (b *Bell) Pitch() pitch.Pitch {
	return b.pitch
}

// State reports the current lifecycle state.
func (b *Bell) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Turns reports how many turns the bell has completed.
func (b *Bell) Turns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.turns
}

// TurnPending reports whether a turn is currently outstanding.
func (b *Bell) TurnPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.turnPending
}
