// Package runlock serializes whole runs over the same message fingerprint.
// The partition/dispatch split is advisory: two processes working the same
// ledger can both see a recipient as pending and both send. Holding a
// fingerprint-scoped lock for the duration of a run closes that window when
// a shared lock store is available; without one, behavior falls back to the
// advisory model.
package runlock

import (
	"context"
	"errors"

	"github.com/ledgermail/ledgermail/internal/domain"
)

// ErrHeld is returned when another run already holds the fingerprint lock.
var ErrHeld = errors.New("another run is already in progress for this message")

// ReleaseFunc releases an acquired lock. Safe to call once.
type ReleaseFunc func(ctx context.Context) error

// Locker acquires an exclusive per-fingerprint run lock.
type Locker interface {
	Acquire(ctx context.Context, fp domain.Fingerprint) (ReleaseFunc, error)
}

// Noop grants every acquisition. Used when no lock store is configured.
type Noop struct{}

func (Noop) Acquire(ctx context.Context, fp domain.Fingerprint) (ReleaseFunc, error) {
	return func(context.Context) error { return nil }, nil
}
