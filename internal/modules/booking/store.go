// Booking store backed by PostgreSQL. All status changes go through a
// compare-and-swap on (status, status_version) so concurrent writers cannot
// clobber each other.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

func (s *Store) Create(ctx context.Context, b *Booking) error {
	stops, err := json.Marshal(b.Stops)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, display_id, passenger_id, operator_scope,
			pickup_address, pickup_lat, pickup_lng, pickup_unit,
			dropoff_address, dropoff_lat, dropoff_lng, dropoff_unit,
			stops, vehicle_type, passengers, payment_method,
			fare_amount, fare_currency, surge_applied, surge_multiplier,
			stop_surcharge_total, scheduled_pickup_at, driver_id,
			status, status_version, assignment_method, dispatch_mode,
			timeout_at, ride_pin, wait_and_return, wait_minutes, priority, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20,
			$21, $22, $23,
			$24, $25, $26, $27,
			$28, $29, $30, $31, $32, $33, $34
		)`,
		string(b.ID), b.DisplayID, string(b.PassengerID), b.OperatorScope,
		b.Pickup.Address, b.Pickup.Point.Lat, b.Pickup.Point.Lng, b.Pickup.Unit,
		b.Dropoff.Address, b.Dropoff.Point.Lat, b.Dropoff.Point.Lng, b.Dropoff.Unit,
		stops, string(b.VehicleType), b.Passengers, string(b.PaymentMethod),
		b.FareEstimate.Amount, b.FareEstimate.Currency, b.SurgeApplied, b.SurgeMultiplier,
		b.StopSurchargeTotal.Amount, b.ScheduledPickupAt, idPtr(b.DriverID),
		string(b.Status), b.StatusVersion, string(b.AssignmentMethod), b.DispatchMode,
		b.TimeoutAt, b.RidePin, b.WaitAndReturn, b.WaitMinutes, b.Priority, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

const bookingColumns = `
	id, display_id, passenger_id, operator_scope,
	pickup_address, pickup_lat, pickup_lng, pickup_unit,
	dropoff_address, dropoff_lat, dropoff_lng, dropoff_unit,
	stops, vehicle_type, passengers, payment_method,
	fare_amount, fare_currency, surge_applied, surge_multiplier,
	stop_surcharge_total, scheduled_pickup_at, driver_id,
	status, status_version, assignment_method, dispatch_mode,
	timeout_at, ride_pin, wait_and_return, wait_minutes, priority, cancel_reason,
	created_at, updated_at`

func (s *Store) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT`+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetActiveByPassenger returns the passenger's most recent non-terminal
// booking, or ErrNotFound when they have no active ride.
func (s *Store) GetActiveByPassenger(ctx context.Context, passengerID types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE passenger_id = $1
		  AND status IN ('pending_assignment','pending_offer','driver_assigned',
		                 'en_route_to_pickup','at_pickup','in_progress')
		ORDER BY created_at DESC
		LIMIT 1`, string(passengerID),
	)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("active booking for passenger %s: %w", passengerID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// TransitionParams is one CAS status move plus the columns that change with it.
type TransitionParams struct {
	ID      types.ID
	From    Status
	To      Status
	Version int

	BindDriver       *types.ID
	ClearDriver      bool
	AssignmentMethod *AssignmentMethod
	TimeoutAt        *time.Time
	ClearTimeout     bool
	CancelReason     *string
}

// Transition applies the CAS update. Returns false when the booking was not
// in (From, Version) anymore; the caller decides whether that is a conflict.
func (s *Store) Transition(ctx context.Context, p TransitionParams) (bool, error) {
	var method *string
	if p.AssignmentMethod != nil {
		m := string(*p.AssignmentMethod)
		method = &m
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    status_version = status_version + 1,
		    driver_id = CASE WHEN $2 THEN NULL ELSE COALESCE($3, driver_id) END,
		    assignment_method = COALESCE($4, assignment_method),
		    timeout_at = CASE WHEN $5 THEN NULL ELSE COALESCE($6, timeout_at) END,
		    cancel_reason = COALESCE($7, cancel_reason),
		    updated_at = NOW()
		WHERE id = $8 AND status = $9 AND status_version = $10`,
		string(p.To), p.ClearDriver, idPtr(p.BindDriver), method,
		p.ClearTimeout, p.TimeoutAt, p.CancelReason,
		string(p.ID), string(p.From), p.Version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateDetails rewrites the editable fields while the booking is still
// queued. CAS on pending_assignment + version keeps edits from racing the
// dispatcher.
type UpdateDetailsParams struct {
	ID                 types.ID
	Version            int
	Pickup             types.Location
	Stops              []types.Location
	Dropoff            types.Location
	ScheduledPickupAt  *time.Time
	FareEstimate       types.Money
	StopSurchargeTotal types.Money
	SurgeApplied       bool
	SurgeMultiplier    float64
}

func (s *Store) UpdateDetails(ctx context.Context, p UpdateDetailsParams) (bool, error) {
	stops, err := json.Marshal(p.Stops)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET pickup_address = $1, pickup_lat = $2, pickup_lng = $3, pickup_unit = $4,
		    dropoff_address = $5, dropoff_lat = $6, dropoff_lng = $7, dropoff_unit = $8,
		    stops = $9, scheduled_pickup_at = $10,
		    fare_amount = $11, fare_currency = $12,
		    stop_surcharge_total = $13, surge_applied = $14, surge_multiplier = $15,
		    status_version = status_version + 1,
		    updated_at = NOW()
		WHERE id = $16 AND status = 'pending_assignment' AND status_version = $17`,
		p.Pickup.Address, p.Pickup.Point.Lat, p.Pickup.Point.Lng, p.Pickup.Unit,
		p.Dropoff.Address, p.Dropoff.Point.Lat, p.Dropoff.Point.Lng, p.Dropoff.Unit,
		stops, p.ScheduledPickupAt,
		p.FareEstimate.Amount, p.FareEstimate.Currency,
		p.StopSurchargeTotal.Amount, p.SurgeApplied, p.SurgeMultiplier,
		string(p.ID), p.Version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListQueueTimedOut returns queued bookings whose timeout window has passed.
func (s *Store) ListQueueTimedOut(ctx context.Context, now time.Time, limit int) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE status = 'pending_assignment' AND timeout_at IS NOT NULL AND timeout_at < $1
		ORDER BY timeout_at
		LIMIT $2`, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ExtendTimeout pushes the queue window of a still-queued booking.
func (s *Store) ExtendTimeout(ctx context.Context, id types.ID, until time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET timeout_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending_assignment'`,
		until, string(id),
	)
	return err
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_state_events (
			booking_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.BookingID), string(e.FromStatus), string(e.ToStatus),
		e.ActorType, idPtr(e.ActorID), e.CreatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var (
		b        Booking
		stops    []byte
		driverID *string
	)
	err := row.Scan(
		&b.ID, &b.DisplayID, &b.PassengerID, &b.OperatorScope,
		&b.Pickup.Address, &b.Pickup.Point.Lat, &b.Pickup.Point.Lng, &b.Pickup.Unit,
		&b.Dropoff.Address, &b.Dropoff.Point.Lat, &b.Dropoff.Point.Lng, &b.Dropoff.Unit,
		&stops, &b.VehicleType, &b.Passengers, &b.PaymentMethod,
		&b.FareEstimate.Amount, &b.FareEstimate.Currency, &b.SurgeApplied, &b.SurgeMultiplier,
		&b.StopSurchargeTotal.Amount, &b.ScheduledPickupAt, &driverID,
		&b.Status, &b.StatusVersion, &b.AssignmentMethod, &b.DispatchMode,
		&b.TimeoutAt, &b.RidePin, &b.WaitAndReturn, &b.WaitMinutes, &b.Priority, &b.CancelReason,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(stops) > 0 {
		if err := json.Unmarshal(stops, &b.Stops); err != nil {
			return nil, err
		}
	}
	if driverID != nil {
		d := types.ID(*driverID)
		b.DriverID = &d
	}
	b.StopSurchargeTotal.Currency = b.FareEstimate.Currency
	return &b, nil
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
