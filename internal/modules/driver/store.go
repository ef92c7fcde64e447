// Driver store backed by PostgreSQL. Claim/Release keep the availability
// flag and the booking binding in one atomic statement so two concurrent
// bookings can never capture the same driver.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cabwise/internal/apperr"
	"cabwise/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (
			id, display_id, name, operator_scope, vehicle_type,
			availability, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(d.ID), d.DisplayID, d.Name, d.OperatorScope, string(d.VehicleType),
		string(d.Availability), string(d.Status), d.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, display_id, name, operator_scope, vehicle_type,
		       availability, status, current_booking_id, created_at
		FROM drivers
		WHERE id = $1`, string(id),
	)
	var (
		d         Driver
		bookingID *string
	)
	err := row.Scan(
		&d.ID, &d.DisplayID, &d.Name, &d.OperatorScope, &d.VehicleType,
		&d.Availability, &d.Status, &bookingID, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("driver %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if bookingID != nil {
		b := types.ID(*bookingID)
		d.CurrentBookingID = &b
	}
	return &d, nil
}

// SetAvailability flips a driver between online and offline. Drivers bound
// to a booking cannot change availability until released.
func (s *Store) SetAvailability(ctx context.Context, id types.ID, to Availability) error {
	if to != AvailabilityOnline && to != AvailabilityOffline {
		return apperr.Validationf("availability must be online or offline")
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET availability = $1
		WHERE id = $2 AND availability <> 'assigned'`,
		string(to), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or currently assigned; disambiguate for the caller.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("driver %s is on an active booking: %w", id, apperr.ErrConflict)
	}
	return nil
}

// Claim atomically binds the first eligible driver to the booking: online,
// active, vehicle type match, operator scope match (or the platform pool when
// cross-scope is allowed), not in the exclude list. First match by display ID
// order; there is deliberately no proximity ranking.
func (s *Store) Claim(ctx context.Context, req ClaimRequest) (types.ID, bool, error) {
	exclude := make([]string, 0, len(req.Exclude))
	for _, id := range req.Exclude {
		exclude = append(exclude, string(id))
	}
	row := s.db.QueryRow(ctx, `
		UPDATE drivers
		SET availability = 'assigned', current_booking_id = $1
		WHERE id = (
			SELECT id FROM drivers
			WHERE availability = 'online'
			  AND status = 'active'
			  AND vehicle_type = $2
			  AND (operator_scope = $3 OR ($4 AND operator_scope = $5))
			  AND id <> ALL($6::text[])
			ORDER BY display_id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`,
		string(req.BookingID), string(req.VehicleType), req.OperatorScope,
		req.AllowCrossScope, PlatformScope, exclude,
	)
	var id string
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return types.ID(id), true, nil
}

// Release returns an assigned driver to the online pool.
func (s *Store) Release(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET availability = 'online', current_booking_id = NULL
		WHERE id = $1 AND availability = 'assigned'`,
		string(id),
	)
	return err
}
