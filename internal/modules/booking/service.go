// Booking orchestration: intake, dispatch, offer responses and ride
// progression. All cross-module access goes through narrow interfaces so the
// flows can be tested without a live store behind every dependency.
package booking

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cabwise/internal/apperr"
	"cabwise/internal/config"
	"cabwise/internal/events"
	"cabwise/internal/modules/driver"
	"cabwise/internal/modules/fare"
	"cabwise/internal/modules/offer"
	"cabwise/internal/modules/operator"
	"cabwise/internal/modules/sequence"
	"cabwise/internal/observability"
	"cabwise/internal/types"
)

// BookingStore is the persistence surface the orchestrator needs.
type BookingStore interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	GetActiveByPassenger(ctx context.Context, passengerID types.ID) (*Booking, error)
	Transition(ctx context.Context, p TransitionParams) (bool, error)
	UpdateDetails(ctx context.Context, p UpdateDetailsParams) (bool, error)
	ListQueueTimedOut(ctx context.Context, now time.Time, limit int) ([]*Booking, error)
	ExtendTimeout(ctx context.Context, id types.ID, until time.Time) error
	AppendEvent(ctx context.Context, e *Event) error
}

// DriverPool claims and releases drivers for dispatch.
type DriverPool interface {
	Claim(ctx context.Context, req driver.ClaimRequest) (types.ID, bool, error)
	Release(ctx context.Context, id types.ID) error
}

// OfferStore manages ride offers.
type OfferStore interface {
	CreatePending(ctx context.Context, o *offer.Offer) (bool, error)
	Get(ctx context.Context, id types.ID) (*offer.Offer, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to offer.Status) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*offer.Offer, error)
}

// Quoter prices a ride.
type Quoter interface {
	Quote(ctx context.Context, req fare.QuoteRequest) (fare.Quote, error)
}

// Sequencer allocates the per-operator booking sequence.
type Sequencer interface {
	Allocate(ctx context.Context, scopeKey string) (int64, error)
}

// SettingsSource resolves operator dispatch settings.
type SettingsSource interface {
	Get(ctx context.Context, scope string) (operator.Settings, error)
}

// ChangeNotifier pings a passenger's watchers after a visible change.
type ChangeNotifier interface {
	Publish(ctx context.Context, passengerID types.ID) error
}

// DispatchLog tracks which drivers were already offered a booking.
type DispatchLog interface {
	RecordOffered(ctx context.Context, bookingID, driverID types.ID) error
	OfferedDrivers(ctx context.Context, bookingID types.ID) ([]types.ID, error)
}

type Service struct {
	store     BookingStore
	drivers   DriverPool
	offers    OfferStore
	quoter    Quoter
	seq       Sequencer
	operators SettingsSource
	notifier  ChangeNotifier
	log       DispatchLog
	producer  *events.Producer
	cfg       config.DispatchConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(
	store BookingStore,
	drivers DriverPool,
	offers OfferStore,
	quoter Quoter,
	seq Sequencer,
	operators SettingsSource,
	notifier ChangeNotifier,
	log DispatchLog,
	producer *events.Producer,
	cfg config.DispatchConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		drivers:   drivers,
		offers:    offers,
		quoter:    quoter,
		seq:       seq,
		operators: operators,
		notifier:  notifier,
		log:       log,
		producer:  producer,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateCommand struct {
	PassengerID       types.ID
	OperatorScope     string
	Pickup            types.Location
	Stops             []types.Location
	Dropoff           types.Location
	VehicleType       fare.VehicleType
	Passengers        int
	PaymentMethod     PaymentMethod
	ScheduledPickupAt *time.Time
	WaitAndReturn     bool
	WaitMinutes       int
	Priority          bool
	// Quoted carries a fare the passenger already accepted, so intake does
	// not price the ride a second time. Nil means quote at intake.
	Quoted *fare.Quote
}

// Create quotes (unless a prior quote is carried in), persists and, for
// auto-dispatch operators, immediately tries to match the new booking. A
// failed immediate match is not an error: the booking stays queued and the
// timeout sweep keeps retrying.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	if cmd.PassengerID == "" {
		return nil, apperr.Validationf("passenger id is required")
	}
	if cmd.Pickup.Address == "" || cmd.Dropoff.Address == "" {
		return nil, apperr.Validationf("pickup and dropoff addresses are required")
	}
	if !cmd.PaymentMethod.Valid() {
		return nil, apperr.Validationf("unknown payment method %q", cmd.PaymentMethod)
	}

	settings, err := s.operators.Get(ctx, cmd.OperatorScope)
	if err != nil {
		return nil, err
	}

	surgeApplied := settings.SurgeEnabled && settings.SurgeMultiplier > 1
	var quote fare.Quote
	if cmd.Quoted != nil {
		if !cmd.VehicleType.Valid() {
			return nil, apperr.Validationf("unknown vehicle type %q", cmd.VehicleType)
		}
		if cmd.Passengers < 1 {
			return nil, apperr.Validationf("at least one passenger is required")
		}
		quote = *cmd.Quoted
		surgeApplied = quote.SurgeMultiplier > 1
	} else {
		quote, err = s.quoter.Quote(ctx, fare.QuoteRequest{
			Pickup:          cmd.Pickup,
			Stops:           cmd.Stops,
			Dropoff:         cmd.Dropoff,
			VehicleType:     cmd.VehicleType,
			Passengers:      cmd.Passengers,
			WaitAndReturn:   cmd.WaitAndReturn,
			WaitMinutes:     cmd.WaitMinutes,
			Priority:        cmd.Priority,
			SurgeApplied:    surgeApplied,
			SurgeMultiplier: settings.SurgeMultiplier,
			OperatorScope:   cmd.OperatorScope,
		})
		if err != nil {
			return nil, err
		}
	}

	seq, err := s.seq.Allocate(ctx, sequence.BookingScope(cmd.OperatorScope))
	if err != nil {
		return nil, err
	}

	now := s.now()
	b := &Booking{
		ID:                 types.ID(uuid.NewString()),
		DisplayID:          sequence.FormatBookingID(settings.DisplayPrefix, seq),
		PassengerID:        cmd.PassengerID,
		OperatorScope:      cmd.OperatorScope,
		Pickup:             cmd.Pickup,
		Stops:              cmd.Stops,
		Dropoff:            cmd.Dropoff,
		VehicleType:        cmd.VehicleType,
		Passengers:         cmd.Passengers,
		PaymentMethod:      cmd.PaymentMethod,
		FareEstimate:       quote.Fare,
		SurgeApplied:       surgeApplied,
		SurgeMultiplier:    quote.SurgeMultiplier,
		StopSurchargeTotal: types.Money{Amount: quote.Breakdown["stops"], Currency: quote.Fare.Currency},
		ScheduledPickupAt:  cmd.ScheduledPickupAt,
		Status:             StatusPendingAssignment,
		DispatchMode:       string(settings.DispatchMode),
		WaitAndReturn:      cmd.WaitAndReturn,
		WaitMinutes:        cmd.WaitMinutes,
		Priority:           cmd.Priority,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if cmd.PaymentMethod == PayAccount {
		pin, err := newRidePin()
		if err != nil {
			return nil, err
		}
		b.RidePin = pin
	}

	if settings.DispatchMode == operator.DispatchManual {
		b.AssignmentMethod = AssignManualQueued
	} else {
		b.AssignmentMethod = AssignQueued
		timeout := now.Add(s.cfg.QueueWindow)
		b.TimeoutAt = &timeout
	}

	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, b.ID, "", b.Status, "passenger", &cmd.PassengerID)
	observability.BookingsCreated.WithLabelValues(string(b.AssignmentMethod)).Inc()

	if settings.DispatchMode == operator.DispatchAuto {
		dispatched, err := s.attemptDispatch(ctx, b, settings)
		if err != nil {
			s.logger.Warn("immediate dispatch failed",
				zap.String("booking_id", string(b.ID)),
				zap.Error(err))
		}
		if dispatched {
			// Re-read so the caller sees the offered state.
			return s.store.Get(ctx, b.ID)
		}
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetActiveByPassenger(ctx context.Context, passengerID types.ID) (*Booking, error) {
	return s.store.GetActiveByPassenger(ctx, passengerID)
}

// Cancel stops a still-queued booking. Anything past pending_assignment
// conflicts: an offered booking resolves through the offer (decline or
// expiry), not through passenger cancellation.
func (s *Service) Cancel(ctx context.Context, id, passengerID types.ID, reason string) error {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.PassengerID != passengerID {
		return fmt.Errorf("booking %s: %w", id, apperr.ErrUnauthorized)
	}
	if b.Status != StatusPendingAssignment {
		return &apperr.StatusConflict{Action: "cancel", Status: string(b.Status)}
	}

	ok, err := s.store.Transition(ctx, TransitionParams{
		ID:           id,
		From:         b.Status,
		To:           StatusCancelled,
		Version:      b.StatusVersion,
		ClearTimeout: true,
		CancelReason: &reason,
	})
	if err != nil {
		return err
	}
	if !ok {
		return &apperr.StatusConflict{Action: "cancel", Status: string(b.Status)}
	}

	s.recordEvent(ctx, id, b.Status, StatusCancelled, "passenger", &passengerID)
	s.notifyChange(ctx, b.PassengerID)
	s.producer.EmitTransition(ctx, string(id), string(b.Status), string(StatusCancelled))
	return nil
}

type UpdateCommand struct {
	BookingID         types.ID
	PassengerID       types.ID
	Pickup            types.Location
	Stops             []types.Location
	Dropoff           types.Location
	ScheduledPickupAt *time.Time
}

// Update amends the route of a still-queued booking and re-quotes the fare.
// Once dispatch has started the booking is immutable.
func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.PassengerID != cmd.PassengerID {
		return nil, fmt.Errorf("booking %s: %w", cmd.BookingID, apperr.ErrUnauthorized)
	}
	if b.Status != StatusPendingAssignment {
		return nil, &apperr.StatusConflict{Action: "amend", Status: string(b.Status)}
	}
	if cmd.Pickup.Address == "" || cmd.Dropoff.Address == "" {
		return nil, apperr.Validationf("pickup and dropoff addresses are required")
	}

	quote, err := s.quoter.Quote(ctx, fare.QuoteRequest{
		Pickup:          cmd.Pickup,
		Stops:           cmd.Stops,
		Dropoff:         cmd.Dropoff,
		VehicleType:     b.VehicleType,
		Passengers:      b.Passengers,
		WaitAndReturn:   b.WaitAndReturn,
		WaitMinutes:     b.WaitMinutes,
		Priority:        b.Priority,
		SurgeApplied:    b.SurgeApplied,
		SurgeMultiplier: b.SurgeMultiplier,
		OperatorScope:   b.OperatorScope,
	})
	if err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateDetails(ctx, UpdateDetailsParams{
		ID:                 cmd.BookingID,
		Version:            b.StatusVersion,
		Pickup:             cmd.Pickup,
		Stops:              cmd.Stops,
		Dropoff:            cmd.Dropoff,
		ScheduledPickupAt:  cmd.ScheduledPickupAt,
		FareEstimate:       quote.Fare,
		StopSurchargeTotal: types.Money{Amount: quote.Breakdown["stops"], Currency: quote.Fare.Currency},
		SurgeApplied:       b.SurgeApplied,
		SurgeMultiplier:    quote.SurgeMultiplier,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &apperr.StatusConflict{Action: "amend", Status: string(b.Status)}
	}
	s.notifyChange(ctx, b.PassengerID)
	return s.store.Get(ctx, cmd.BookingID)
}

type RespondCommand struct {
	OfferID  types.ID
	DriverID types.ID
	Accept   bool
}

// RespondToOffer resolves a pending offer. Acceptance locks the driver in;
// decline releases them and immediately retries dispatch excluding everyone
// already offered this booking.
func (s *Service) RespondToOffer(ctx context.Context, cmd RespondCommand) (*Booking, error) {
	o, err := s.offers.Get(ctx, cmd.OfferID)
	if err != nil {
		return nil, err
	}
	if o.DriverID != cmd.DriverID {
		return nil, fmt.Errorf("offer %s: %w", cmd.OfferID, apperr.ErrUnauthorized)
	}
	if o.Status != offer.StatusPending {
		return nil, &apperr.StatusConflict{Action: "respond to offer", Status: string(o.Status)}
	}
	if o.Expired(s.now()) {
		// The sweep has not caught it yet; resolve the expiry inline.
		if err := s.expireOffer(ctx, o); err != nil {
			s.logger.Warn("inline offer expiry", zap.String("offer_id", string(o.ID)), zap.Error(err))
		}
		return nil, &apperr.StatusConflict{Action: "respond to offer", Status: string(offer.StatusExpired)}
	}

	b, err := s.store.Get(ctx, o.BookingID)
	if err != nil {
		return nil, err
	}

	if cmd.Accept {
		ok, err := s.offers.UpdateStatus(ctx, o.ID, offer.StatusPending, offer.StatusAccepted)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &apperr.StatusConflict{Action: "respond to offer", Status: string(offer.StatusExpired)}
		}
		ok, err = s.store.Transition(ctx, TransitionParams{
			ID:      b.ID,
			From:    StatusPendingOffer,
			To:      StatusDriverAssigned,
			Version: b.StatusVersion,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &apperr.StatusConflict{Action: "respond to offer", Status: string(b.Status)}
		}
		observability.OfferResponses.WithLabelValues("accepted").Inc()
		s.recordEvent(ctx, b.ID, StatusPendingOffer, StatusDriverAssigned, "driver", &cmd.DriverID)
		s.notifyChange(ctx, b.PassengerID)
		s.producer.EmitTransition(ctx, string(b.ID), string(StatusPendingOffer), string(StatusDriverAssigned))
		return s.store.Get(ctx, b.ID)
	}

	ok, err := s.offers.UpdateStatus(ctx, o.ID, offer.StatusPending, offer.StatusDeclined)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &apperr.StatusConflict{Action: "respond to offer", Status: string(offer.StatusExpired)}
	}
	observability.OfferResponses.WithLabelValues("declined").Inc()
	if err := s.requeueAfterOffer(ctx, b, o, "driver declined"); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, b.ID)
}

// EnRoute marks the assigned driver as heading to the pickup.
func (s *Service) EnRoute(ctx context.Context, bookingID, driverID types.ID) error {
	return s.advance(ctx, bookingID, driverID, StatusDriverAssigned, StatusEnRouteToPickup, "start pickup run")
}

// ArriveAtPickup marks the driver as waiting at the pickup point.
func (s *Service) ArriveAtPickup(ctx context.Context, bookingID, driverID types.ID) error {
	return s.advance(ctx, bookingID, driverID, StatusEnRouteToPickup, StatusAtPickup, "arrive at pickup")
}

// StartRide begins the ride. Account bookings require the passenger's ride
// PIN before the meter starts.
func (s *Service) StartRide(ctx context.Context, bookingID, driverID types.ID, pin string) error {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.PaymentMethod == PayAccount && b.RidePin != pin {
		return fmt.Errorf("ride pin mismatch: %w", apperr.ErrUnauthorized)
	}
	return s.advance(ctx, bookingID, driverID, StatusAtPickup, StatusInProgress, "start ride")
}

// Complete finishes the ride and returns the driver to the online pool.
func (s *Service) Complete(ctx context.Context, bookingID, driverID types.ID) error {
	if err := s.advance(ctx, bookingID, driverID, StatusInProgress, StatusCompleted, "complete ride"); err != nil {
		return err
	}
	if err := s.drivers.Release(ctx, driverID); err != nil {
		s.logger.Warn("release driver on completion",
			zap.String("driver_id", string(driverID)),
			zap.Error(err))
	}
	return nil
}

func (s *Service) advance(ctx context.Context, bookingID, driverID types.ID, from, to Status, action string) error {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.DriverID == nil || *b.DriverID != driverID {
		return fmt.Errorf("booking %s: %w", bookingID, apperr.ErrUnauthorized)
	}
	if b.Status != from {
		return &apperr.StatusConflict{Action: action, Status: string(b.Status)}
	}
	ok, err := s.store.Transition(ctx, TransitionParams{
		ID:      bookingID,
		From:    from,
		To:      to,
		Version: b.StatusVersion,
	})
	if err != nil {
		return err
	}
	if !ok {
		return &apperr.StatusConflict{Action: action, Status: string(b.Status)}
	}
	s.recordEvent(ctx, bookingID, from, to, "driver", &driverID)
	s.notifyChange(ctx, b.PassengerID)
	s.producer.EmitTransition(ctx, string(bookingID), string(from), string(to))
	return nil
}

// attemptDispatch claims a driver and extends them an offer. On a partial
// failure every prior step is compensated so the booking, driver and offer
// never disagree about who is bound to whom.
func (s *Service) attemptDispatch(ctx context.Context, b *Booking, settings operator.Settings) (bool, error) {
	exclude, err := s.log.OfferedDrivers(ctx, b.ID)
	if err != nil {
		s.logger.Warn("read offered drivers", zap.String("booking_id", string(b.ID)), zap.Error(err))
		exclude = nil
	}

	driverID, claimed, err := s.drivers.Claim(ctx, driver.ClaimRequest{
		OperatorScope:   b.OperatorScope,
		VehicleType:     b.VehicleType,
		AllowCrossScope: settings.AllowCrossScope,
		Exclude:         exclude,
		BookingID:       b.ID,
	})
	if err != nil {
		observability.DispatchAttempts.WithLabelValues("error").Inc()
		return false, err
	}
	if !claimed {
		observability.DispatchAttempts.WithLabelValues("no_driver").Inc()
		return false, nil
	}

	wait := settings.MaxOfferWait
	if wait <= 0 {
		wait = s.cfg.OfferWait
	}
	now := s.now()
	o := &offer.Offer{
		ID:        types.ID(uuid.NewString()),
		BookingID: b.ID,
		DriverID:  driverID,
		Status:    offer.StatusPending,
		Snapshot: offer.Snapshot{
			Pickup:      b.Pickup,
			Dropoff:     b.Dropoff,
			Fare:        b.FareEstimate,
			VehicleType: string(b.VehicleType),
		},
		CreatedAt: now,
		ExpiresAt: now.Add(wait),
	}
	created, err := s.offers.CreatePending(ctx, o)
	if err != nil || !created {
		if relErr := s.drivers.Release(ctx, driverID); relErr != nil {
			s.logger.Warn("release driver after failed offer",
				zap.String("driver_id", string(driverID)),
				zap.Error(relErr))
		}
		observability.DispatchAttempts.WithLabelValues("error").Inc()
		return false, err
	}

	method := AssignAutoImmediate
	ok, err := s.store.Transition(ctx, TransitionParams{
		ID:               b.ID,
		From:             b.Status,
		To:               StatusPendingOffer,
		Version:          b.StatusVersion,
		BindDriver:       &driverID,
		AssignmentMethod: &method,
		ClearTimeout:     true,
	})
	if err != nil || !ok {
		if _, updErr := s.offers.UpdateStatus(ctx, o.ID, offer.StatusPending, offer.StatusExpired); updErr != nil {
			s.logger.Warn("expire offer after failed bind", zap.String("offer_id", string(o.ID)), zap.Error(updErr))
		}
		if relErr := s.drivers.Release(ctx, driverID); relErr != nil {
			s.logger.Warn("release driver after failed bind",
				zap.String("driver_id", string(driverID)),
				zap.Error(relErr))
		}
		observability.DispatchAttempts.WithLabelValues("error").Inc()
		return false, err
	}

	if err := s.log.RecordOffered(ctx, b.ID, driverID); err != nil {
		s.logger.Warn("record offered driver", zap.String("booking_id", string(b.ID)), zap.Error(err))
	}
	observability.DispatchAttempts.WithLabelValues("offered").Inc()
	s.recordEvent(ctx, b.ID, b.Status, StatusPendingOffer, "system", nil)
	s.notifyChange(ctx, b.PassengerID)
	s.producer.EmitTransition(ctx, string(b.ID), string(b.Status), string(StatusPendingOffer))
	return true, nil
}

// requeueAfterOffer puts an offered booking back in the queue after a decline
// or expiry, releases the driver and immediately tries the next candidate.
func (s *Service) requeueAfterOffer(ctx context.Context, b *Booking, o *offer.Offer, reason string) error {
	if err := s.drivers.Release(ctx, o.DriverID); err != nil {
		s.logger.Warn("release driver on requeue",
			zap.String("driver_id", string(o.DriverID)),
			zap.Error(err))
	}

	method := AssignQueued
	timeout := s.now().Add(s.cfg.QueueWindow)
	ok, err := s.store.Transition(ctx, TransitionParams{
		ID:               b.ID,
		From:             StatusPendingOffer,
		To:               StatusPendingAssignment,
		Version:          b.StatusVersion,
		ClearDriver:      true,
		AssignmentMethod: &method,
		TimeoutAt:        &timeout,
	})
	if err != nil {
		return err
	}
	if !ok {
		// Someone else already moved the booking; nothing left to do.
		return nil
	}
	s.recordEvent(ctx, b.ID, StatusPendingOffer, StatusPendingAssignment, "system", nil)
	s.notifyChange(ctx, b.PassengerID)
	s.producer.EmitTransition(ctx, string(b.ID), string(StatusPendingOffer), string(StatusPendingAssignment))
	s.logger.Info("booking requeued",
		zap.String("booking_id", string(b.ID)),
		zap.String("reason", reason))

	requeued, err := s.store.Get(ctx, b.ID)
	if err != nil {
		return err
	}
	settings, err := s.operators.Get(ctx, b.OperatorScope)
	if err != nil {
		return err
	}
	if settings.DispatchMode == operator.DispatchAuto {
		if _, err := s.attemptDispatch(ctx, requeued, settings); err != nil {
			s.logger.Warn("redispatch after requeue", zap.String("booking_id", string(b.ID)), zap.Error(err))
		}
	}
	return nil
}

// recordEvent appends to the audit trail. Best effort: a full trail is never
// worth failing the transition that already committed.
func (s *Service) recordEvent(ctx context.Context, bookingID types.ID, from, to Status, actorType string, actorID *types.ID) {
	e := &Event{
		BookingID:  bookingID,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  s.now(),
	}
	if err := s.store.AppendEvent(ctx, e); err != nil {
		s.logger.Warn("append booking event", zap.String("booking_id", string(bookingID)), zap.Error(err))
	}
}

func (s *Service) notifyChange(ctx context.Context, passengerID types.ID) {
	if err := s.notifier.Publish(ctx, passengerID); err != nil {
		s.logger.Warn("notify watchers", zap.String("passenger_id", string(passengerID)), zap.Error(err))
	}
}

// newRidePin draws a 4-digit PIN for account bookings.
func newRidePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
