// Package idempotency defines how mutating API requests are deduplicated by
// X-Idempotency-Key.
package idempotency

import (
	"context"
	"time"
)

// Status represents the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StaleAfter is how long a pending key may stay unfinished before another request
// is allowed to reclaim it.
const StaleAfter = time.Minute

// Replay is a stored HTTP response returned for a repeated request.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey reserves key for the request.
	//   - (nil, nil): key acquired, the caller runs the operation
	//   - (replay, nil): the operation already finished, replay its response
	//   - (nil, err): the key is in flight (IDEMPOTENCY_CONFLICT) or was used
	//     for a different request (validation error)
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error)

	// CompleteKey stores a successful response.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// FailKey stores a client error response so a retry replays it.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// ReleaseKey forgets key so the request can be retried after a server error.
	ReleaseKey(ctx context.Context, key string) error

	// CleanupExpired removes keys older than their TTL.
	CleanupExpired(ctx context.Context) (int64, error)
}

// NormalizeStatus defaults a missing stored status to 200.
func NormalizeStatus(status int) int {
	if status == 0 {
		return 200
	}
	return status
}

// NormalizeContentType defaults a missing stored content type to JSON.
func NormalizeContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}
