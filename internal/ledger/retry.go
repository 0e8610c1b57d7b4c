package ledger

import (
	"strings"
	"time"

	"github.com/scale-lab/la-core/internal/timeutil"
)

const (
	busyMaxAttempts  = 5
	busyInitialDelay = 10 * time.Millisecond
)

// retryOnBusy runs fn, retrying with exponential backoff while sqlite
// reports the database as busy. Other errors are returned immediately.
func retryOnBusy(clock timeutil.Clock, fn func() error) error {
	delay := busyInitialDelay
	var err error
	for attempt := 1; attempt <= busyMaxAttempts; attempt++ {
		err = fn()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		if attempt < busyMaxAttempts {
			clock.Sleep(delay)
			delay *= 2
		}
	}
	return err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
