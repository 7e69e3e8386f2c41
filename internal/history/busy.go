package history

import (
	"context"
	"errors"
	"strings"
	"time"
)

const sqliteBusyCode = 5

// busyPolicy retries operations that fail because another connection holds
// the write lock. busy_timeout covers most contention; this catches the
// cases SQLite reports immediately, such as lock upgrades inside WAL.
type busyPolicy struct {
	attempts int
	initial  time.Duration
	max      time.Duration
}

var defaultBusyPolicy = busyPolicy{
	attempts: 5,
	initial:  10 * time.Millisecond,
	max:      200 * time.Millisecond,
}

func (p busyPolicy) do(ctx context.Context, op func() error) error {
	delay := p.initial
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !isBusy(err) || attempt >= p.attempts {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, p.max)
	}
}

func isBusy(err error) bool {
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
