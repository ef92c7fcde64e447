// Gapless per-scope sequence allocation backed by a transactional counter
// row. Used for booking display IDs and driver IDs.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cabwise/internal/apperr"
)

const maxAttempts = 3

type Allocator struct {
	db *pgxpool.Pool
}

func NewAllocator(db *pgxpool.Pool) *Allocator {
	return &Allocator{db: db}
}

// Allocate increments the counter for scopeKey and returns the new value.
// The read-increment-write runs as a single atomic upsert, so concurrent
// callers in the same scope each get a distinct consecutive value with no
// gaps. A missing counter is initialised to 1 in the same statement.
func (a *Allocator) Allocate(ctx context.Context, scopeKey string) (int64, error) {
	if scopeKey == "" {
		return 0, apperr.Validationf("sequence scope key is required")
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}
		var n int64
		err := a.db.QueryRow(ctx, `
			INSERT INTO sequence_counters (scope_key, current_value)
			VALUES ($1, 1)
			ON CONFLICT (scope_key)
			DO UPDATE SET current_value = sequence_counters.current_value + 1
			RETURNING current_value`, scopeKey,
		).Scan(&n)
		if err == nil {
			return n, nil
		}
		if !isRetryable(err) {
			return 0, fmt.Errorf("allocate sequence %s: %w", scopeKey, err)
		}
		lastErr = err
	}
	return 0, fmt.Errorf("allocate sequence %s: %w: %v", scopeKey, apperr.ErrTransient, lastErr)
}

// isRetryable reports whether the error is transaction contention the caller
// may safely retry: serialization failure, deadlock, or the insert/insert
// race on a fresh counter row.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "23505":
		return true
	}
	return false
}

// BookingScope is the counter key for booking display IDs within an operator.
func BookingScope(operatorScope string) string {
	return "bookingId_" + operatorScope
}

// DriverScope is the counter key for driver IDs within an operator.
func DriverScope(operatorScope string) string {
	return "driverId_" + operatorScope
}

// FormatBookingID renders a booking display ID, e.g. HUD/00000042.
func FormatBookingID(scopePrefix string, seq int64) string {
	return fmt.Sprintf("%s/%08d", scopePrefix, seq)
}

// FormatDriverID renders a driver display ID, e.g. OP001/DR007.
func FormatDriverID(operatorCode string, seq int64) string {
	return fmt.Sprintf("%s/DR%03d", operatorCode, seq)
}
