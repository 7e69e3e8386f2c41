package performance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"carillon/internal/audio"
	"carillon/internal/audio/devmon"
	"carillon/internal/conductor"
	"carillon/internal/config"
	"carillon/internal/history"
	"carillon/internal/logging"
	"carillon/internal/logs"
	"carillon/internal/preflight"
	"carillon/internal/score"
	"carillon/internal/waveform"
)

// ErrLocked is returned when another performance holds the audio lock.
var ErrLocked = errors.New("another performance is already playing")

const (
	// progressInterval is how often note progress is written to history.
	progressInterval = time.Second
	// retainedRunLogs survive log retention no matter how old they are.
	retainedRunLogs = 5
)

// Options customises a single performance.
type Options struct {
	ScorePath string
	// Backend overrides audio.backend when set.
	Backend string
	// WAVPath overrides audio.wav_path when set.
	WAVPath string
	// DryRun plays through the null backend.
	DryRun bool
	Logger *slog.Logger
	// Sink replaces the configured backend. The runner still closes it.
	Sink audio.Sink
	// OnNote is called after every note with the count played so far.
	OnNote func(played, total int)
}

// Result summarises a finished performance.
type Result struct {
	RunID          string
	Score          score.Score
	Backend        string
	Output         string
	Status         history.Status
	NotesPlayed    int
	Elapsed        time.Duration
	LogPath        string
	DevicesRemoved int
}

// Run plays one score end to end: parse, preflight, lock, record, play.
// The returned Result is non-nil once the score has loaded, even when the
// performance itself fails.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	runCfg, err := resolveConfig(cfg, opts)
	if err != nil {
		return nil, err
	}

	s, err := score.Load(opts.ScorePath)
	if err != nil {
		return nil, err
	}

	if err := runCfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	if opts.Sink == nil {
		if err := preflight.Err(preflight.RunAll(ctx, runCfg)); err != nil {
			return nil, fmt.Errorf("preflight: %w", err)
		}
	}

	lock := flock.New(runCfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, runCfg.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	result := &Result{
		RunID:   runID,
		Score:   s,
		Backend: runCfg.Audio.Backend,
		LogPath: logs.RunLogPath(runCfg.Paths.LogDir, runID),
	}
	if runCfg.Audio.Backend == config.BackendWAV {
		result.Output = audio.OptionsFromConfig(runCfg).WAVPath
	}

	logger, closeLog, err := runLogger(ctx, runCfg, opts.Logger, result.LogPath)
	if err != nil {
		return result, err
	}
	defer closeLog()

	logging.CleanupOldLogs(logger, runCfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: runCfg.Paths.LogDir, Pattern: "carillon-*.log", Exclude: []string{result.LogPath}, Keep: retainedRunLogs},
	)

	r := &runner{
		cfg:    runCfg,
		opts:   opts,
		logger: logger,
		result: result,
		score:  s,
	}
	return result, r.perform(ctx)
}

type runner struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
	result *Result
	score  score.Score

	store  *history.Store
	played atomic.Int64
}

func (r *runner) perform(ctx context.Context) error {
	started := time.Now()
	defer func() { r.result.Elapsed = time.Since(started) }()

	r.logger.Info("run starting",
		logging.String(logging.FieldEventType, "run_starting"),
		logging.String("score", r.score.Name),
		logging.String("score_path", r.opts.ScorePath),
		logging.Int("notes", r.score.Len()),
		logging.String("backend", r.cfg.Audio.Backend),
		logging.Duration("length", r.score.Length(r.cfg.Measure())),
	)

	if err := r.beginHistory(ctx); err != nil {
		return err
	}

	table, err := waveform.New(waveform.Options{
		SampleRate: r.cfg.Audio.SampleRate,
		Measure:    r.cfg.Measure(),
		Volume:     r.cfg.Audio.Volume,
	})
	if err != nil {
		return r.finish(err)
	}

	sink := r.opts.Sink
	if sink == nil {
		sinkOpts := audio.OptionsFromConfig(r.cfg)
		sinkOpts.Logger = r.logger
		sink, err = audio.Open(sinkOpts)
		if err != nil {
			return r.finish(err)
		}
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logging.WarnWithContext(r.logger, "failed to close audio sink", "sink_close_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the tail of the performance may be missing"),
			)
		}
	}()

	monitor := devmon.New(r.cfg, r.logger, nil)
	if err := monitor.Start(ctx); err != nil {
		return r.finish(err)
	}
	defer func() {
		monitor.Stop()
		r.result.DevicesRemoved = monitor.RemovedCount()
	}()

	c := conductor.New(table, sink,
		conductor.WithLogger(r.logger),
		conductor.WithObserver(r),
		conductor.WithGapSamples(r.cfg.Audio.NoteGapSamples),
	)
	if err := c.Load(r.score, r.score.Pitches()); err != nil {
		return r.finish(err)
	}

	stopProgress := r.startProgressWriter(ctx)
	playErr := c.Play(ctx)
	c.StopAll()
	stopProgress()

	if playErr == nil {
		if err := sink.Drain(); err != nil {
			playErr = fmt.Errorf("drain audio: %w", err)
		}
	}
	return r.finish(playErr)
}

// NoteStarted implements conductor.Observer.
func (r *runner) NoteStarted(int, score.Entry) {}

// NoteFinished implements conductor.Observer.
func (r *runner) NoteFinished(index int, _ score.Entry, err error) {
	if err != nil {
		return
	}
	played := int(r.played.Add(1))
	if r.opts.OnNote != nil {
		r.opts.OnNote(played, r.score.Len())
	}
}

func (r *runner) beginHistory(ctx context.Context) error {
	if !r.cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(r.cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	r.store = store

	if n, err := store.MarkAbandoned(ctx); err != nil {
		logging.WarnWithContext(r.logger, "failed to reconcile abandoned performances", "history_reconcile_failed",
			logging.Error(err),
		)
	} else if n > 0 {
		r.logger.Info("marked abandoned performances as failed",
			logging.String(logging.FieldEventType, "history_abandoned"),
			logging.Int64("count", n),
		)
	}

	hash, err := score.Hash(r.opts.ScorePath)
	if err != nil {
		r.logger.Debug("score hash unavailable", logging.Error(err))
	}
	record := &history.Performance{
		ID:        r.result.RunID,
		ScorePath: absPath(r.opts.ScorePath),
		ScoreName: r.score.Name,
		ScoreHash: hash,
		Backend:   r.cfg.Audio.Backend,
		NoteCount: r.score.Len(),
		LogPath:   r.result.LogPath,
	}
	if err := store.Begin(ctx, record); err != nil {
		_ = store.Close()
		r.store = nil
		return fmt.Errorf("record performance: %w", err)
	}
	return nil
}

// startProgressWriter flushes the played-note count to history once a
// second. The returned func stops it and waits for the last write.
func (r *runner) startProgressWriter(ctx context.Context) func() {
	if r.store == nil {
		return func() {}
	}
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		last := int64(-1)
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				played := r.played.Load()
				if played == last {
					continue
				}
				last = played
				if err := r.store.RecordProgress(ctx, r.result.RunID, int(played)); err != nil {
					r.logger.Debug("record progress failed", logging.Error(err))
				}
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

func (r *runner) finish(runErr error) error {
	r.result.NotesPlayed = int(r.played.Load())
	switch {
	case runErr == nil:
		r.result.Status = history.StatusCompleted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		r.result.Status = history.StatusCancelled
	default:
		r.result.Status = history.StatusFailed
	}

	if r.store != nil {
		// The run context may already be cancelled; the record must still land.
		if err := r.store.Finish(context.Background(), r.result.RunID, r.result.Status, r.result.NotesPlayed, runErr); err != nil {
			logging.WarnWithContext(r.logger, "failed to record performance outcome", "history_finish_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "history shows this run as playing until the next performance"),
			)
		}
		_ = r.store.Close()
		r.store = nil
	}

	if r.result.Status == history.StatusFailed {
		logging.ErrorWithContext(r.logger, "run failed", "run_failed",
			logging.Error(runErr),
			logging.Int("notes_played", r.result.NotesPlayed),
			logging.String(logging.FieldErrorHint, "check the audio backend with `carillon check`"),
		)
	} else {
		r.logger.Info("run finished",
			logging.String(logging.FieldEventType, "run_finished"),
			logging.String("status", string(r.result.Status)),
			logging.Int("notes_played", r.result.NotesPlayed),
		)
	}
	return runErr
}

func resolveConfig(cfg *config.Config, opts Options) (*config.Config, error) {
	runCfg := *cfg
	if backend := strings.ToLower(strings.TrimSpace(opts.Backend)); backend != "" {
		runCfg.Audio.Backend = backend
	}
	if opts.WAVPath != "" {
		expanded, err := config.ExpandPath(opts.WAVPath)
		if err != nil {
			return nil, fmt.Errorf("wav path: %w", err)
		}
		runCfg.Audio.WAVPath = expanded
		if opts.Backend == "" {
			runCfg.Audio.Backend = config.BackendWAV
		}
	}
	if opts.DryRun {
		runCfg.Audio.Backend = config.BackendNull
	}
	if err := runCfg.Validate(); err != nil {
		return nil, err
	}
	return &runCfg, nil
}

// runLogger tees the base logger into a JSON file dedicated to this run.
func runLogger(ctx context.Context, cfg *config.Config, base *slog.Logger, logPath string) (*slog.Logger, func(), error) {
	if base == nil {
		base = logging.NewNop()
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, nil, fmt.Errorf("open run log: %w", err)
	}
	handler, err := logging.NewWriterHandler(file, "debug", "json")
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		base.Debug("unable to update carillon.log link", logging.Error(err))
	}
	logger := logging.WithContext(ctx, logging.TeeLogger(base, handler))
	return logger, func() { _ = file.Close() }, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "carillon.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
