package database

import (
	"context"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	txMaxAttempts   = 3
	txBackoffBase   = 100 * time.Millisecond
)

// WithRetryTx runs fn inside a database transaction, retrying on transient
// write conflicts with bounded exponential backoff (100ms, 200ms, 400ms).
// Non-transient errors abort immediately.
func WithRetryTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var lastErr error

	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := txBackoffBase * time.Duration(1<<(attempt-1))
			log.Printf("Retrying transaction (attempt %d) after %s: %v", attempt+1, backoff, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = db.WithContext(ctx).Transaction(fn)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// isTransient reports whether the error is a write conflict worth retrying.
// Postgres serialization/deadlock failures surface with SQLSTATE 40001/40P01.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "40001") ||
		strings.Contains(msg, "40P01") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access")
}
