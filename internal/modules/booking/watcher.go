package booking

import (
	"context"
	"errors"
	"time"

	"cabwise/internal/apperr"
	"cabwise/internal/types"
)

// SnapshotSource reads booking snapshots for the watcher.
type SnapshotSource interface {
	Get(ctx context.Context, id types.ID) (*Booking, error)
	GetActiveByPassenger(ctx context.Context, passengerID types.ID) (*Booking, error)
}

// ChangeSubscriber delivers per-passenger change pings.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, passengerID types.ID) (<-chan struct{}, func())
}

// Watcher implements the passenger long poll: hold the request open until the
// active booking visibly changes or the timeout ceiling passes.
type Watcher struct {
	source  SnapshotSource
	changes ChangeSubscriber
	timeout time.Duration
}

func NewWatcher(source SnapshotSource, changes ChangeSubscriber, timeout time.Duration) *Watcher {
	return &Watcher{source: source, changes: changes, timeout: timeout}
}

// WatchResult is the booking state at poll return. A nil Booking means the
// passenger has no active ride; otherwise Changed is false only on a clean
// timeout. The client re-polls immediately either way.
type WatchResult struct {
	Booking *Booking
	Changed bool
}

// Watch blocks until the passenger's active booking changes, the watch
// timeout elapses, or ctx is cancelled. A passenger with nothing to watch
// gets an empty result, not an error. The subscription is opened before the
// baseline read so a change landing between the two is not lost.
func (w *Watcher) Watch(ctx context.Context, passengerID types.ID) (WatchResult, error) {
	pings, cancel := w.changes.Subscribe(ctx, passengerID)
	defer cancel()

	baseline, err := w.source.GetActiveByPassenger(ctx, passengerID)
	if errors.Is(err, apperr.ErrNotFound) {
		return WatchResult{}, nil
	}
	if err != nil {
		return WatchResult{}, err
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return WatchResult{}, ctx.Err()
		case <-timer.C:
			return WatchResult{Booking: baseline, Changed: false}, nil
		case _, ok := <-pings:
			if !ok {
				return WatchResult{Booking: baseline, Changed: false}, nil
			}
			current, err := w.source.GetActiveByPassenger(ctx, passengerID)
			if errors.Is(err, apperr.ErrNotFound) {
				// The ride left the active set; report its terminal state.
				final, err := w.source.Get(ctx, baseline.ID)
				if err != nil {
					return WatchResult{}, err
				}
				return WatchResult{Booking: final, Changed: true}, nil
			}
			if err != nil {
				return WatchResult{}, err
			}
			if snapshotChanged(baseline, current) {
				return WatchResult{Booking: current, Changed: true}, nil
			}
			// Spurious ping; keep waiting within the same window.
		}
	}
}

// snapshotChanged reports whether the passenger-visible state moved. The
// status version covers every write path that matters (transitions and detail
// edits both bump it).
func snapshotChanged(old, cur *Booking) bool {
	if old.ID != cur.ID {
		return true
	}
	if old.Status != cur.Status || old.StatusVersion != cur.StatusVersion {
		return true
	}
	if (old.DriverID == nil) != (cur.DriverID == nil) {
		return true
	}
	if old.DriverID != nil && *old.DriverID != *cur.DriverID {
		return true
	}
	return false
}
