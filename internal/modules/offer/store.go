// Offer store backed by PostgreSQL. A partial unique index on
// (booking_id) WHERE status = 'pending' backs the conditional insert, so at
// most one pending offer can exist per booking even under concurrent writers.
package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

// CreatePending inserts a new pending offer unless the booking already has
// one. Returns false without error when another pending offer won the race.
func (s *Store) CreatePending(ctx context.Context, o *Offer) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO ride_offers (
			id, booking_id, driver_id, status,
			pickup_address, pickup_lat, pickup_lng, pickup_unit,
			dropoff_address, dropoff_lat, dropoff_lng, dropoff_unit,
			fare_amount, fare_currency, vehicle_type,
			created_at, expires_at
		)
		SELECT $1, $2, $3, 'pending',
		       $4, $5, $6, $7,
		       $8, $9, $10, $11,
		       $12, $13, $14,
		       $15, $16
		WHERE NOT EXISTS (
			SELECT 1 FROM ride_offers WHERE booking_id = $2 AND status = 'pending'
		)`,
		string(o.ID), string(o.BookingID), string(o.DriverID),
		o.Snapshot.Pickup.Address, o.Snapshot.Pickup.Point.Lat, o.Snapshot.Pickup.Point.Lng, o.Snapshot.Pickup.Unit,
		o.Snapshot.Dropoff.Address, o.Snapshot.Dropoff.Point.Lat, o.Snapshot.Dropoff.Point.Lng, o.Snapshot.Dropoff.Unit,
		o.Snapshot.Fare.Amount, o.Snapshot.Fare.Currency, o.Snapshot.VehicleType,
		o.CreatedAt, o.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Offer, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, booking_id, driver_id, status,
		       pickup_address, pickup_lat, pickup_lng, pickup_unit,
		       dropoff_address, dropoff_lat, dropoff_lng, dropoff_unit,
		       fare_amount, fare_currency, vehicle_type,
		       created_at, responded_at, expires_at
		FROM ride_offers
		WHERE id = $1`, string(id),
	)
	o, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("offer %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetPendingByBooking returns the booking's live offer, if any.
func (s *Store) GetPendingByBooking(ctx context.Context, bookingID types.ID) (*Offer, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, booking_id, driver_id, status,
		       pickup_address, pickup_lat, pickup_lng, pickup_unit,
		       dropoff_address, dropoff_lat, dropoff_lng, dropoff_unit,
		       fare_amount, fare_currency, vehicle_type,
		       created_at, responded_at, expires_at
		FROM ride_offers
		WHERE booking_id = $1 AND status = 'pending'`, string(bookingID),
	)
	o, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

// UpdateStatus moves an offer from one status to another, recording the
// response time. Returns false when the offer was no longer in `from`.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE ride_offers
		SET status = $1, responded_at = NOW()
		WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpired returns pending offers whose deadline has passed.
func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]*Offer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, driver_id, status,
		       pickup_address, pickup_lat, pickup_lng, pickup_unit,
		       dropoff_address, dropoff_lat, dropoff_lng, dropoff_unit,
		       fare_amount, fare_currency, vehicle_type,
		       created_at, responded_at, expires_at
		FROM ride_offers
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2`, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*Offer, error) {
	var o Offer
	err := row.Scan(
		&o.ID, &o.BookingID, &o.DriverID, &o.Status,
		&o.Snapshot.Pickup.Address, &o.Snapshot.Pickup.Point.Lat, &o.Snapshot.Pickup.Point.Lng, &o.Snapshot.Pickup.Unit,
		&o.Snapshot.Dropoff.Address, &o.Snapshot.Dropoff.Point.Lat, &o.Snapshot.Dropoff.Point.Lng, &o.Snapshot.Dropoff.Unit,
		&o.Snapshot.Fare.Amount, &o.Snapshot.Fare.Currency, &o.Snapshot.VehicleType,
		&o.CreatedAt, &o.RespondedAt, &o.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
