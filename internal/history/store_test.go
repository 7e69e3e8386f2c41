package history_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"carillon/internal/history"
	"carillon/internal/testsupport"
)

func begin(t *testing.T, store *history.Store, id string, started time.Time) *history.Performance {
	t.Helper()
	p := &history.Performance{
		ID:        id,
		ScorePath: "/scores/" + id + ".txt",
		ScoreName: id,
		ScoreHash: "abc123",
		Backend:   "null",
		NoteCount: 12,
		StartedAt: started,
	}
	if err := store.Begin(context.Background(), p); err != nil {
		t.Fatalf("Begin(%s): %v", id, err)
	}
	return p
}

func TestPerformanceLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	begin(t, store, "run-1", time.Time{})
	if err := store.RecordProgress(ctx, "run-1", 5); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}

	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != history.StatusPlaying || got.NotesPlayed != 5 || got.NoteCount != 12 {
		t.Fatalf("unexpected playing record %+v", got)
	}
	if got.StartedAt.IsZero() || !got.FinishedAt.IsZero() {
		t.Fatalf("unexpected timestamps %+v", got)
	}

	cause := errors.New("device unplugged")
	if err := store.Finish(ctx, "run-1", history.StatusFailed, 7, cause); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got, err = store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != history.StatusFailed || got.NotesPlayed != 7 || got.ErrorMessage != "device unplugged" {
		t.Fatalf("unexpected finished record %+v", got)
	}
	if got.FinishedAt.IsZero() || got.Elapsed() < 0 {
		t.Fatalf("expected finish time, got %+v", got)
	}

	if err := store.Finish(ctx, "run-1", history.StatusCompleted, 12, nil); err == nil {
		t.Fatal("expected error finishing an already finished performance")
	}
	if err := store.RecordProgress(ctx, "run-1", 9); err == nil {
		t.Fatal("expected error recording progress on a finished performance")
	}
}

func TestFinishRejectsPlayingStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	begin(t, store, "run-1", time.Time{})
	if err := store.Finish(context.Background(), "run-1", history.StatusPlaying, 0, nil); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	got, err := store.Get(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}
}

func TestListNewestFirstWithFilters(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	begin(t, store, "a", base)
	begin(t, store, "b", base.Add(100*time.Millisecond))
	begin(t, store, "c", base.Add(120*time.Millisecond))
	if err := store.Finish(ctx, "a", history.StatusCompleted, 12, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := store.Finish(ctx, "b", history.StatusCancelled, 3, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ids := make([]string, len(all))
	for i, p := range all {
		ids[i] = p.ID
	}
	if strings.Join(ids, ",") != "c,b,a" {
		t.Fatalf("unexpected order %v", ids)
	}

	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 || limited[0].ID != "c" {
		t.Fatalf("unexpected limited list %v (%v)", limited, err)
	}

	finished, err := store.List(ctx, 0, history.StatusCompleted, history.StatusCancelled)
	if err != nil || len(finished) != 2 {
		t.Fatalf("unexpected filtered list %v (%v)", finished, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[history.StatusPlaying] != 1 || stats[history.StatusCompleted] != 1 || stats[history.StatusCancelled] != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestClearKeepsPlayingRows(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	begin(t, store, "done", time.Time{})
	begin(t, store, "live", time.Time{})
	if err := store.Finish(ctx, "done", history.StatusCompleted, 12, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 row removed, got %d", removed)
	}
	if p, _ := store.Get(ctx, "live"); p == nil {
		t.Fatal("playing performance must survive Clear")
	}
}

func TestMarkAbandoned(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	begin(t, store, "stale", time.Time{})

	n, err := store.MarkAbandoned(ctx)
	if err != nil || n != 1 {
		t.Fatalf("MarkAbandoned = %d, %v", n, err)
	}
	p, _ := store.Get(ctx, "stale")
	if p.Status != history.StatusFailed || !strings.Contains(p.ErrorMessage, "abandoned") {
		t.Fatalf("unexpected record %+v", p)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	store.Close()

	db, err := sql.Open("sqlite", cfg.HistoryPath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := history.Open(cfg); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	for _, status := range history.AllStatuses() {
		got, ok := history.ParseStatus(string(status))
		if !ok || got != status {
			t.Fatalf("ParseStatus(%q) = %q, %v", status, got, ok)
		}
	}
	if _, ok := history.ParseStatus("queued"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
