// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the Postgres and in-memory
// implementations live under infrastructure/storage.
package tx

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/pkg/logger"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested transaction support.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Inspector is implemented by managers that can tell whether ctx already
// carries an open transaction.
type Inspector interface {
	InTransaction(ctx context.Context) bool
}

// RetryPolicy bounds how often a transaction is re-run after a
// concurrent modification.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy retries three times with a short linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff:  10 * time.Millisecond,
	}
}

// RunWithRetry runs fn in a transaction and re-runs the whole transaction when it
// fails with a concurrent modification (serialization failure, deadlock, stale version).
// Other errors are returned immediately. After the last attempt the concurrent
// modification error is surfaced to the caller.
//
// When ctx already carries a transaction, retrying here would replay only part of the
// outer unit, so fn runs once and the outer caller owns the retry.
func RunWithRetry(ctx context.Context, m Manager, policy RetryPolicy, fn func(ctx context.Context) error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if in, ok := m.(Inspector); ok && in.InTransaction(ctx) {
		return m.RunInTransaction(ctx, fn)
	}

	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		err = m.RunInTransaction(ctx, fn)
		if err == nil || !apperror.IsConcurrentModification(err) {
			return err
		}
		if attempt == policy.Attempts {
			break
		}

		logger.Debug(ctx, "retrying transaction after concurrent modification",
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * policy.Backoff):
		}
	}
	return err
}
