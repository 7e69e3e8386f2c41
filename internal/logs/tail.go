package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const pollInterval = 250 * time.Millisecond

// TailOptions selects which lines Tail returns. A negative Offset means
// "the last Limit lines"; otherwise reading starts at Offset bytes.
type TailOptions struct {
	Offset int64
	Limit  int
	// Wait bounds how long Tail polls for new lines when none are ready.
	Wait time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path. A missing file yields no lines and offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var result TailResult
	if opts.Offset < 0 {
		result.Lines, result.Offset, err = readLastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or replaced; start over.
			offset = 0
		}
		result.Lines, result.Offset, err = readForward(path, offset)
	}
	if err != nil {
		return result, err
	}
	if len(result.Lines) == 0 && opts.Wait > 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait)
	}
	return result, nil
}

// Follow prints the last limit lines through emit and then keeps emitting
// new lines until ctx ends. It returns nil on cancellation.
func Follow(ctx context.Context, path string, limit int, emit func(string)) error {
	result, err := Tail(ctx, path, TailOptions{Offset: -1, Limit: limit})
	if err != nil {
		return err
	}
	for {
		for _, line := range result.Lines {
			emit(line)
		}
		result, err = Tail(ctx, path, TailOptions{Offset: result.Offset, Wait: time.Minute})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLastLines keeps a sliding window of the newest limit lines. limit <= 0
// skips straight to the end of the file.
func readLastLines(path string, limit int) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if limit <= 0 {
		end, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	window := make([]string, 0, limit)
	end, err := scanLines(f, func(line string) {
		if len(window) == limit {
			copy(window, window[1:])
			window = window[:limit-1]
		}
		window = append(window, line)
	})
	if err != nil {
		return nil, 0, err
	}
	return window, end, nil
}

// readForward returns the complete lines after offset. A file that vanished
// between polls reads as empty from the start.
func readForward(path string, offset int64) ([]string, int64, error) {
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, 0, nil
	case err != nil:
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	n, err := scanLines(f, func(line string) { lines = append(lines, line) })
	if err != nil {
		return nil, offset, err
	}
	return lines, offset + n, nil
}

// scanLines feeds every complete line to fn and reports the bytes consumed.
// A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		fn(trimNewline(line))
	}
}

func trimNewline(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}

		lines, newOffset, err := readForward(path, result.Offset)
		if err != nil {
			return result, err
		}
		result.Offset = newOffset
		if len(lines) > 0 || time.Now().After(deadline) {
			result.Lines = lines
			return result, nil
		}
	}
}
