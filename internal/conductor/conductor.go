package conductor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"carillon/internal/bell"
	"carillon/internal/logging"
	"carillon/internal/pitch"
	"carillon/internal/score"
	"carillon/internal/waveform"
)

var (
	// ErrAlreadyLoaded is returned by a second Load.
	ErrAlreadyLoaded = errors.New("conductor: score already loaded")
	// ErrNotLoaded is returned by Play before Load.
	ErrNotLoaded = errors.New("conductor: no score loaded")
	// ErrAlreadyPlaying is returned when Play overlaps another Play.
	ErrAlreadyPlaying = errors.New("conductor: already playing")
	// ErrStopped is returned by Load after StopAll.
	ErrStopped = errors.New("conductor: ensemble stopped")
)

// Observer is told about every note the conductor hands out. Calls happen on
// the Play goroutine, between turns.
type Observer interface {
	NoteStarted(index int, entry score.Entry)
	NoteFinished(index int, entry score.Entry, err error)
}

// Option customises a Conductor.
type Option func(*Conductor)

// WithLogger sets the logger used for the conductor and its bells.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conductor) {
		if logger != nil {
			c.baseLogger = logger
		}
	}
}

// WithObserver registers an observer for note progress.
func WithObserver(observer Observer) Option {
	return func(c *Conductor) {
		c.observer = observer
	}
}

// WithGapSamples writes n samples of silence after every note.
func WithGapSamples(n int) Option {
	return func(c *Conductor) {
		if n > 0 {
			c.gapSamples = n
		}
	}
}

// Conductor walks a score and hands each note to the bell for its pitch,
// one turn at a time.
type Conductor struct {
	table      *waveform.Table
	sink       bell.Sink
	timing     bell.Timing
	gapSamples int
	observer   Observer
	baseLogger *slog.Logger
	logger     *slog.Logger

	mu      sync.Mutex
	loaded  bool
	stopped bool
	entries []score.Entry
	bells   map[pitch.Pitch]*bell.Bell
	order   []*bell.Bell

	playing  atomic.Bool
	stopOnce sync.Once
}

// New returns an empty conductor. table supplies every bell's samples and
// sink receives all of them.
func New(table *waveform.Table, sink bell.Sink, opts ...Option) *Conductor {
	if table == nil {
		panic("conductor: nil waveform table")
	}
	if sink == nil {
		panic("conductor: nil sink")
	}
	c := &Conductor{
		table:      table,
		sink:       sink,
		timing:     bell.Timing{SampleRate: table.SampleRate(), MaxNote: table.Measure()},
		baseLogger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.baseLogger, "conductor")
	return c
}

// Load stores the score and starts one bell per distinct pitch in pitches.
// The pitch set must cover every pitch the score uses; Play panics otherwise.
func (c *Conductor) Load(s score.Score, pitches []pitch.Pitch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	if c.loaded {
		return ErrAlreadyLoaded
	}

	unique := make([]pitch.Pitch, 0, len(pitches))
	seen := make(map[pitch.Pitch]struct{}, len(pitches))
	for _, p := range pitches {
		if !p.Valid() {
			return fmt.Errorf("conductor: invalid pitch %d", uint8(p))
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}

	var gap []byte
	if c.gapSamples > 0 {
		gap = c.table.Silence(c.gapSamples)
	}

	c.bells = make(map[pitch.Pitch]*bell.Bell, len(unique))
	c.order = make([]*bell.Bell, 0, len(unique))
	for _, p := range unique {
		b := bell.New(bell.Config{
			Pitch:   p,
			Samples: c.table.Samples(p),
			Gap:     gap,
			Sink:    c.sink,
			Timing:  c.timing,
			Logger:  c.baseLogger,
		})
		b.Start()
		c.bells[p] = b
		c.order = append(c.order, b)
	}
	c.entries = append([]score.Entry(nil), s.Entries...)
	c.loaded = true

	c.logger.Info("bells ready",
		logging.String(logging.FieldEventType, "bells_ready"),
		logging.String("score", s.Name),
		logging.Int("notes", len(c.entries)),
		logging.Int("bells", len(c.order)),
	)
	return nil
}

// Play hands every note of the loaded score to its bell in order and
// returns after the last note has been written. Cancelling ctx stops the
// walk at the next note boundary; the note in flight always completes.
//
// A sink failure aborts the walk and is returned wrapped with the note
// position. Calling Play after StopAll panics.
func (c *Conductor) Play(ctx context.Context) error {
	c.mu.Lock()
	loaded, stopped := c.loaded, c.stopped
	entries, bells := c.entries, c.bells
	c.mu.Unlock()

	if stopped {
		panic(fmt.Errorf("%w: play after StopAll", bell.ErrProtocolViolation))
	}
	if !loaded {
		return ErrNotLoaded
	}
	if !c.playing.CompareAndSwap(false, true) {
		return ErrAlreadyPlaying
	}
	defer c.playing.Store(false)

	measure := c.table.Measure()
	started := time.Now()
	c.logger.Info("performance started",
		logging.String(logging.FieldEventType, "performance_started"),
		logging.Int("notes", len(entries)),
	)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			c.logger.Info("performance cancelled",
				logging.String(logging.FieldEventType, "performance_cancelled"),
				logging.Int("notes_played", i),
			)
			return err
		}
		b, ok := bells[entry.Pitch]
		if !ok {
			panic(fmt.Sprintf("conductor: no bell for %s at note %d", entry.Pitch, i+1))
		}

		if c.observer != nil {
			c.observer.NoteStarted(i, entry)
		}
		c.logger.Debug("note",
			logging.Int(logging.FieldNoteIndex, i+1),
			logging.String(logging.FieldPitch, entry.Pitch.String()),
			logging.String("duration", entry.Duration.String()),
		)
		err := b.GiveTurn(entry.Duration.Within(measure))
		if c.observer != nil {
			c.observer.NoteFinished(i, entry, err)
		}
		if err != nil {
			return fmt.Errorf("note %d (%s %s): %w", i+1, entry.Pitch, entry.Duration, err)
		}
	}

	c.logger.Info("performance finished",
		logging.String(logging.FieldEventType, "performance_finished"),
		logging.Int("notes_played", len(entries)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// StopAll signals every bell to stop, then waits for all of them to exit.
// Later calls are no-ops that still return only after shutdown completes.
// Call it once Play has returned.
func (c *Conductor) StopAll() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		order := c.order
		c.mu.Unlock()

		for _, b := range order {
			b.Stop()
		}
		for _, b := range order {
			b.Wait()
		}
		c.logger.Debug("bells stopped",
			logging.String(logging.FieldEventType, "bells_stopped"),
			logging.Int("bells", len(order)),
		)
	})
}

// Bells reports how many bells were started.
func (c *Conductor) Bells() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Bell returns the bell for p, if one was started.
func (c *Conductor) Bell(p pitch.Pitch) (*bell.Bell, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bells[p]
	return b, ok
}
