package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const performanceColumns = "id, score_path, score_name, score_hash, backend, status, note_count, notes_played, log_path, error_message, started_at, finished_at"

// Begin records a new performance in the playing state. StartedAt defaults
// to now.
func (s *Store) Begin(ctx context.Context, p *Performance) error {
	if p == nil {
		return errors.New("performance is nil")
	}
	if p.ID == "" {
		return errors.New("performance id is empty")
	}
	if p.StartedAt.IsZero() {
		p.StartedAt = time.Now().UTC()
	}
	p.Status = StatusPlaying
	p.NotesPlayed = 0
	p.FinishedAt = time.Time{}
	p.ErrorMessage = ""

	if _, err := s.exec(ctx,
		`INSERT INTO performances (
            id, score_path, score_name, score_hash, backend, status,
            note_count, notes_played, log_path, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		p.ID,
		p.ScorePath,
		nullableString(p.ScoreName),
		nullableString(p.ScoreHash),
		p.Backend,
		p.Status,
		p.NoteCount,
		nullableString(p.LogPath),
		formatTime(p.StartedAt),
	); err != nil {
		return fmt.Errorf("insert performance: %w", err)
	}
	return nil
}

// RecordProgress stores how many notes a playing performance has emitted.
func (s *Store) RecordProgress(ctx context.Context, id string, notesPlayed int) error {
	res, err := s.exec(ctx,
		`UPDATE performances SET notes_played = ? WHERE id = ? AND status = ?`,
		notesPlayed, id, StatusPlaying,
	)
	if err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	return expectOneRow(res, id)
}

// Finish moves a playing performance to a terminal status. cause is stored
// as the error message when non-nil.
func (s *Store) Finish(ctx context.Context, id string, status Status, notesPlayed int, cause error) error {
	if !status.Finished() {
		return fmt.Errorf("finish performance %s: status %q is not terminal", id, status)
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	res, err := s.exec(ctx,
		`UPDATE performances
         SET status = ?, notes_played = ?, error_message = ?, finished_at = ?
         WHERE id = ? AND status = ?`,
		status,
		notesPlayed,
		nullableString(message),
		formatTime(time.Now()),
		id,
		StatusPlaying,
	)
	if err != nil {
		return fmt.Errorf("finish performance: %w", err)
	}
	return expectOneRow(res, id)
}

// Get fetches a performance by id. A missing id returns nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Performance, error) {
	ctx = orBackground(ctx)
	var p *Performance
	err := s.busy.do(ctx, func() error {
		var err error
		p, err = scanPerformance(s.db.QueryRowContext(ctx,
			`SELECT `+performanceColumns+` FROM performances WHERE id = ?`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get performance: %w", err)
	}
	return p, nil
}

// List returns performances newest first. limit <= 0 returns all of them.
// Passing statuses restricts the result to those statuses.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Performance, error) {
	query := `SELECT ` + performanceColumns + ` FROM performances`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY started_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var out []*Performance
	err := s.query(ctx, query, args, func(rows *sql.Rows) error {
		p, err := scanPerformance(rows)
		if err != nil {
			return fmt.Errorf("scan performance: %w", err)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list performances: %w", err)
	}
	return out, nil
}

// Clear removes every finished performance and reports how many went.
// Rows still playing belong to a live run and are kept.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM performances WHERE status != ?`, StatusPlaying)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

// MarkAbandoned fails every performance still marked playing. Callers hold
// the performance lock, so such rows belong to a process that died.
func (s *Store) MarkAbandoned(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE performances SET status = ?, error_message = ?, finished_at = ? WHERE status = ?`,
		StatusFailed,
		"performance abandoned: process exited before finishing",
		formatTime(time.Now()),
		StatusPlaying,
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned performances: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of performances grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	stats := make(map[Status]int)
	err := s.query(ctx, `SELECT status, COUNT(1) FROM performances GROUP BY status`, nil, func(rows *sql.Rows) error {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		stats[Status(status)] = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	return stats, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("performance %s is not playing", id)
	}
	return nil
}

func scanPerformance(scanner interface{ Scan(dest ...any) error }) (*Performance, error) {
	var (
		id          string
		scorePath   string
		scoreName   sql.NullString
		scoreHash   sql.NullString
		backend     string
		statusStr   string
		noteCount   int
		notesPlayed int
		logPath     sql.NullString
		errMessage  sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&scorePath,
		&scoreName,
		&scoreHash,
		&backend,
		&statusStr,
		&noteCount,
		&notesPlayed,
		&logPath,
		&errMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	started, err := parseTime(startedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	finished, err := parseTime(finishedRaw.String)
	if err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	return &Performance{
		ID:           id,
		ScorePath:    scorePath,
		ScoreName:    scoreName.String,
		ScoreHash:    scoreHash.String,
		Backend:      backend,
		Status:       Status(statusStr),
		NoteCount:    noteCount,
		NotesPlayed:  notesPlayed,
		LogPath:      logPath.String,
		ErrorMessage: errMessage.String,
		StartedAt:    started,
		FinishedAt:   finished,
	}, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	buf := make([]byte, 0, count*2-1)
	for i := 0; i < count; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '?')
	}
	return string(buf)
}
