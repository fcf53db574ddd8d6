// Package lock serializes profile updates that may migrate the same entity.
// The migration engine itself does not lock; hosts wrap UpdateProfile with a
// Locker keyed by the profile type base.
package lock

import (
	"context"
	"errors"

	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/sentinel"
)

// Release gives up a held lock.
type Release func(ctx context.Context) error

// Locker acquires a named lock, waiting until ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Do runs fn while holding key.
func Do(ctx context.Context, l Locker, key string, fn func(ctx context.Context) error) error {
	release, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		// the caller's ctx may already be cancelled; releasing must still run
		_ = release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}

func heldError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(errors.Join(sentinel.ErrLockHeld, err), dErrors.CodeConflict, "profile update already in progress")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to acquire profile lock")
}
