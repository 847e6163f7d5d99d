package util

import (
	"context"
	"errors"
	"time"
)

// Backoff configures Retry. Wait doubles after every failed attempt, starting
// at Initial and capped at Cap when Cap is positive.
type Backoff struct {
	Max     int
	Initial time.Duration
	Cap     time.Duration
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, the context
// ends, or b.Max retries are used up. The last error is returned unwrapped.
func Retry(ctx context.Context, b Backoff, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt <= b.Max; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fn(attempt)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == b.Max {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.wait(attempt)):
		}
	}
	return err
}

func (b Backoff) wait(attempt int) time.Duration {
	wait := b.Initial * time.Duration(1<<attempt)
	if b.Cap > 0 && (wait > b.Cap || wait <= 0) {
		return b.Cap
	}
	return wait
}
