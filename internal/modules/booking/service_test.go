package booking

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"cabwise/internal/apperr"
	"cabwise/internal/config"
	"cabwise/internal/modules/driver"
	"cabwise/internal/modules/fare"
	"cabwise/internal/modules/offer"
	"cabwise/internal/modules/operator"
	"cabwise/internal/types"
)

// memStore mirrors the SQL store's CAS semantics in memory.
type memStore struct {
	mu       sync.Mutex
	bookings map[types.ID]*Booking
	events   []*Event
}

func newMemStore() *memStore {
	return &memStore{bookings: make(map[types.ID]*Booking)}
}

func (m *memStore) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *b
	m.bookings[b.ID] = &copied
	return nil
}

func (m *memStore) Get(_ context.Context, id types.ID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *memStore) GetActiveByPassenger(_ context.Context, passengerID types.ID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *Booking
	for _, b := range m.bookings {
		if b.PassengerID == passengerID && b.Active() {
			if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
				latest = b
			}
		}
	}
	if latest == nil {
		return nil, apperr.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (m *memStore) Transition(_ context.Context, p TransitionParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[p.ID]
	if !ok || b.Status != p.From || b.StatusVersion != p.Version {
		return false, nil
	}
	b.Status = p.To
	b.StatusVersion++
	if p.ClearDriver {
		b.DriverID = nil
	} else if p.BindDriver != nil {
		b.DriverID = p.BindDriver
	}
	if p.AssignmentMethod != nil {
		b.AssignmentMethod = *p.AssignmentMethod
	}
	if p.ClearTimeout {
		b.TimeoutAt = nil
	} else if p.TimeoutAt != nil {
		b.TimeoutAt = p.TimeoutAt
	}
	if p.CancelReason != nil {
		b.CancelReason = p.CancelReason
	}
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memStore) UpdateDetails(_ context.Context, p UpdateDetailsParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[p.ID]
	if !ok || b.Status != StatusPendingAssignment || b.StatusVersion != p.Version {
		return false, nil
	}
	b.Pickup = p.Pickup
	b.Stops = p.Stops
	b.Dropoff = p.Dropoff
	b.ScheduledPickupAt = p.ScheduledPickupAt
	b.FareEstimate = p.FareEstimate
	b.StopSurchargeTotal = p.StopSurchargeTotal
	b.SurgeApplied = p.SurgeApplied
	b.SurgeMultiplier = p.SurgeMultiplier
	b.StatusVersion++
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memStore) ListQueueTimedOut(_ context.Context, now time.Time, limit int) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.Status == StatusPendingAssignment && b.TimeoutAt != nil && b.TimeoutAt.Before(now) {
			copied := *b
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) ExtendTimeout(_ context.Context, id types.ID, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok && b.Status == StatusPendingAssignment {
		b.TimeoutAt = &until
	}
	return nil
}

func (m *memStore) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// memDrivers hands out drivers in ID order, like the SQL claim does with
// display IDs.
type memDrivers struct {
	mu        sync.Mutex
	available []types.ID
	assigned  map[types.ID]types.ID
	released  []types.ID
}

func newMemDrivers(ids ...types.ID) *memDrivers {
	return &memDrivers{available: ids, assigned: make(map[types.ID]types.ID)}
}

func (m *memDrivers) Claim(_ context.Context, req driver.ClaimRequest) (types.ID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sort.Slice(m.available, func(i, j int) bool { return m.available[i] < m.available[j] })
	for i, id := range m.available {
		excluded := false
		for _, ex := range req.Exclude {
			if ex == id {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		m.available = append(m.available[:i], m.available[i+1:]...)
		m.assigned[id] = req.BookingID
		return id, true, nil
	}
	return "", false, nil
}

func (m *memDrivers) Release(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assigned[id]; ok {
		delete(m.assigned, id)
		m.available = append(m.available, id)
		m.released = append(m.released, id)
	}
	return nil
}

type memOffers struct {
	mu     sync.Mutex
	offers map[types.ID]*offer.Offer
}

func newMemOffers() *memOffers {
	return &memOffers{offers: make(map[types.ID]*offer.Offer)}
}

func (m *memOffers) CreatePending(_ context.Context, o *offer.Offer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.offers {
		if existing.BookingID == o.BookingID && existing.Status == offer.StatusPending {
			return false, nil
		}
	}
	copied := *o
	m.offers[o.ID] = &copied
	return true, nil
}

func (m *memOffers) Get(_ context.Context, id types.ID) (*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *memOffers) GetPendingByBooking(_ context.Context, bookingID types.ID) (*offer.Offer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.offers {
		if o.BookingID == bookingID && o.Status == offer.StatusPending {
			copied := *o
			return &copied, true, nil
		}
	}
	return nil, false, nil
}

func (m *memOffers) UpdateStatus(_ context.Context, id types.ID, from, to offer.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	now := time.Now().UTC()
	o.RespondedAt = &now
	return true, nil
}

func (m *memOffers) ListExpired(_ context.Context, now time.Time, limit int) ([]*offer.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*offer.Offer
	for _, o := range m.offers {
		if o.Status == offer.StatusPending && now.After(o.ExpiresAt) {
			copied := *o
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fixedQuoter struct {
	mu   sync.Mutex
	last fare.QuoteRequest
}

func (q *fixedQuoter) Quote(_ context.Context, req fare.QuoteRequest) (fare.Quote, error) {
	q.mu.Lock()
	q.last = req
	q.mu.Unlock()
	surge := 1.0
	if req.SurgeApplied && req.SurgeMultiplier > 1 {
		surge = req.SurgeMultiplier
	}
	return fare.Quote{
		Fare:            types.Money{Amount: 574, Currency: "GBP"},
		SurgeMultiplier: surge,
		Breakdown:       map[string]int64{"stops": int64(len(req.Stops)) * 60},
	}, nil
}

type memSeq struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memSeq) Allocate(_ context.Context, scopeKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[scopeKey]++
	return m.counts[scopeKey], nil
}

type memSettings struct {
	settings operator.Settings
}

func (m *memSettings) Get(_ context.Context, scope string) (operator.Settings, error) {
	s := m.settings
	s.Scope = scope
	return s, nil
}

type memNotifier struct {
	mu    sync.Mutex
	count int
}

func (m *memNotifier) Publish(context.Context, types.ID) error {
	m.mu.Lock()
	m.count++
	m.mu.Unlock()
	return nil
}

type memDispatchLog struct {
	mu      sync.Mutex
	offered map[types.ID][]types.ID
}

func newMemDispatchLog() *memDispatchLog {
	return &memDispatchLog{offered: make(map[types.ID][]types.ID)}
}

func (m *memDispatchLog) RecordOffered(_ context.Context, bookingID, driverID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offered[bookingID] = append(m.offered[bookingID], driverID)
	return nil
}

func (m *memDispatchLog) OfferedDrivers(_ context.Context, bookingID types.ID) ([]types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ID(nil), m.offered[bookingID]...), nil
}

type testEnv struct {
	svc      *Service
	store    *memStore
	drivers  *memDrivers
	offers   *memOffers
	quoter   *fixedQuoter
	notifier *memNotifier
	log      *memDispatchLog
	settings *memSettings
}

func newTestEnv(settings operator.Settings, driverIDs ...types.ID) *testEnv {
	env := &testEnv{
		store:    newMemStore(),
		drivers:  newMemDrivers(driverIDs...),
		offers:   newMemOffers(),
		quoter:   &fixedQuoter{},
		notifier: &memNotifier{},
		log:      newMemDispatchLog(),
		settings: &memSettings{settings: settings},
	}
	cfg := config.DispatchConfig{
		QueueWindow: 30 * time.Minute,
		OfferWait:   90 * time.Second,
		SweepTick:   15 * time.Second,
	}
	env.svc = NewService(
		env.store, env.drivers, env.offers, env.quoter, &memSeq{},
		env.settings, env.notifier, env.log, nil, cfg, zap.NewNop(),
	)
	return env
}

func autoSettings() operator.Settings {
	return operator.Settings{
		DisplayPrefix: "HUD",
		OperatorCode:  "OP001",
		DispatchMode:  operator.DispatchAuto,
		QueuePolicy:   operator.QueueRematch,
	}
}

func baseCommand() CreateCommand {
	return CreateCommand{
		PassengerID:   "p1",
		OperatorScope: "hud",
		Pickup:        types.Location{Address: "1 Market St", Point: types.Point{Lat: 53.64, Lng: -1.78}},
		Dropoff:       types.Location{Address: "9 Station Rd", Point: types.Point{Lat: 53.68, Lng: -1.80}},
		VehicleType:   fare.VehicleCar,
		Passengers:    1,
		PaymentMethod: PayCard,
	}
}

func TestCreateAutoDispatchesImmediately(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1", "d2")
	b, err := env.svc.Create(context.Background(), baseCommand())
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != StatusPendingOffer {
		t.Fatalf("status = %s, want %s", b.Status, StatusPendingOffer)
	}
	if b.DriverID == nil || *b.DriverID != "d1" {
		t.Fatalf("driver = %v, want d1", b.DriverID)
	}
	if b.AssignmentMethod != AssignAutoImmediate {
		t.Fatalf("assignment method = %s, want %s", b.AssignmentMethod, AssignAutoImmediate)
	}
	if b.TimeoutAt != nil {
		t.Fatal("dispatched booking should not carry a queue timeout")
	}
	if b.DisplayID != "HUD/00000001" {
		t.Fatalf("display id = %s, want HUD/00000001", b.DisplayID)
	}
	o, found, err := env.offers.GetPendingByBooking(context.Background(), b.ID)
	if err != nil || !found {
		t.Fatalf("expected a pending offer, found=%v err=%v", found, err)
	}
	if o.Snapshot.Fare != b.FareEstimate {
		t.Fatalf("offer fare = %v, want %v", o.Snapshot.Fare, b.FareEstimate)
	}
}

func TestCreateAutoNoDriverStaysQueued(t *testing.T) {
	env := newTestEnv(autoSettings())
	b, err := env.svc.Create(context.Background(), baseCommand())
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != StatusPendingAssignment {
		t.Fatalf("status = %s, want %s", b.Status, StatusPendingAssignment)
	}
	if b.AssignmentMethod != AssignQueued {
		t.Fatalf("assignment method = %s, want %s", b.AssignmentMethod, AssignQueued)
	}
	if b.TimeoutAt == nil {
		t.Fatal("queued booking must carry a timeout")
	}
}

func TestCreateManualQueuesWithoutDispatch(t *testing.T) {
	settings := autoSettings()
	settings.DispatchMode = operator.DispatchManual
	env := newTestEnv(settings, "d1")

	b, err := env.svc.Create(context.Background(), baseCommand())
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != StatusPendingAssignment {
		t.Fatalf("status = %s, want %s", b.Status, StatusPendingAssignment)
	}
	if b.AssignmentMethod != AssignManualQueued {
		t.Fatalf("assignment method = %s, want %s", b.AssignmentMethod, AssignManualQueued)
	}
	if b.TimeoutAt != nil {
		t.Fatal("manual bookings are not swept on a timeout")
	}
	if len(env.drivers.assigned) != 0 {
		t.Fatal("manual mode must not claim a driver")
	}
}

func TestCreateAccountBookingGetsRidePin(t *testing.T) {
	env := newTestEnv(autoSettings())
	cmd := baseCommand()
	cmd.PaymentMethod = PayAccount
	b, err := env.svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^\d{4}$`).MatchString(b.RidePin) {
		t.Fatalf("ride pin = %q, want 4 digits", b.RidePin)
	}
}

func TestCreateAppliesOperatorSurge(t *testing.T) {
	settings := autoSettings()
	settings.SurgeEnabled = true
	settings.SurgeMultiplier = 1.5
	env := newTestEnv(settings)

	b, err := env.svc.Create(context.Background(), baseCommand())
	if err != nil {
		t.Fatal(err)
	}
	if !b.SurgeApplied || b.SurgeMultiplier != 1.5 {
		t.Fatalf("surge = (%v, %v), want (true, 1.5)", b.SurgeApplied, b.SurgeMultiplier)
	}
	if !env.quoter.last.SurgeApplied || env.quoter.last.SurgeMultiplier != 1.5 {
		t.Fatal("surge must be passed through to the quote")
	}
}

func TestCreateHonoursPreQuotedFare(t *testing.T) {
	env := newTestEnv(autoSettings())
	cmd := baseCommand()
	cmd.Quoted = &fare.Quote{
		Fare:            types.Money{Amount: 925, Currency: "GBP"},
		SurgeMultiplier: 1.0,
	}
	b, err := env.svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatal(err)
	}
	if b.FareEstimate.Amount != 925 {
		t.Fatalf("fare = %d, want the carried 925", b.FareEstimate.Amount)
	}
	if env.quoter.last.Pickup.Address != "" {
		t.Fatal("a carried quote must not be priced again")
	}
}

func TestCreatePreQuotedStillValidates(t *testing.T) {
	env := newTestEnv(autoSettings())
	cmd := baseCommand()
	cmd.Quoted = &fare.Quote{Fare: types.Money{Amount: 925, Currency: "GBP"}, SurgeMultiplier: 1.0}
	cmd.VehicleType = "rickshaw"
	if _, err := env.svc.Create(context.Background(), cmd); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	cmd = baseCommand()
	cmd.Quoted = &fare.Quote{Fare: types.Money{Amount: 925, Currency: "GBP"}, SurgeMultiplier: 1.0}
	cmd.Passengers = 0
	if _, err := env.svc.Create(context.Background(), cmd); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(autoSettings())
	cases := []struct {
		name   string
		mutate func(*CreateCommand)
	}{
		{"missing passenger", func(c *CreateCommand) { c.PassengerID = "" }},
		{"missing pickup", func(c *CreateCommand) { c.Pickup.Address = "" }},
		{"missing dropoff", func(c *CreateCommand) { c.Dropoff.Address = "" }},
		{"bad payment method", func(c *CreateCommand) { c.PaymentMethod = "cheque" }},
	}
	for _, tc := range cases {
		cmd := baseCommand()
		tc.mutate(&cmd)
		if _, err := env.svc.Create(context.Background(), cmd); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestCancelQueuedBooking(t *testing.T) {
	env := newTestEnv(autoSettings())
	b, err := env.svc.Create(context.Background(), baseCommand())
	if err != nil {
		t.Fatal(err)
	}
	if err := env.svc.Cancel(context.Background(), b.ID, "p1", "changed plans"); err != nil {
		t.Fatal(err)
	}
	got, _ := env.store.Get(context.Background(), b.ID)
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s, want %s", got.Status, StatusCancelled)
	}
	if got.CancelReason == nil || *got.CancelReason != "changed plans" {
		t.Fatalf("cancel reason = %v, want changed plans", got.CancelReason)
	}
}

func TestCancelOfferedBookingConflicts(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, err := env.svc.Create(context.Background(), baseCommand())
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != StatusPendingOffer {
		t.Fatalf("status = %s, want %s", b.Status, StatusPendingOffer)
	}

	err = env.svc.Cancel(context.Background(), b.ID, "p1", "changed plans")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	var conflict *apperr.StatusConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want StatusConflict", err)
	}
	if conflict.Status != string(StatusPendingOffer) {
		t.Fatalf("conflict names %q, want %q", conflict.Status, StatusPendingOffer)
	}

	// The offer resolves on its own terms: nothing is torn down.
	got, _ := env.store.Get(context.Background(), b.ID)
	if got.Status != StatusPendingOffer {
		t.Fatalf("status = %s, want %s", got.Status, StatusPendingOffer)
	}
	if len(env.drivers.assigned) != 1 {
		t.Fatal("claimed driver must stay claimed after a rejected cancel")
	}
	o, _ := env.offers.Get(context.Background(), offerIDFor(t, env, b.ID))
	if o.Status != offer.StatusPending {
		t.Fatalf("offer status = %s, want %s", o.Status, offer.StatusPending)
	}
}

func TestCancelWrongPassenger(t *testing.T) {
	env := newTestEnv(autoSettings())
	b, _ := env.svc.Create(context.Background(), baseCommand())
	err := env.svc.Cancel(context.Background(), b.ID, "p2", "")
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCancelAfterAssignmentConflicts(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, _ := env.svc.Create(context.Background(), baseCommand())
	acceptOffer(t, env, b.ID, "d1")

	err := env.svc.Cancel(context.Background(), b.ID, "p1", "")
	var conflict *apperr.StatusConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want StatusConflict", err)
	}
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatal("StatusConflict must unwrap to ErrConflict")
	}
}

func TestUpdateRequotesQueuedBooking(t *testing.T) {
	env := newTestEnv(autoSettings())
	b, _ := env.svc.Create(context.Background(), baseCommand())

	updated, err := env.svc.Update(context.Background(), UpdateCommand{
		BookingID:   b.ID,
		PassengerID: "p1",
		Pickup:      b.Pickup,
		Stops:       []types.Location{{Address: "3 Mill Ln", Point: types.Point{Lat: 53.66, Lng: -1.79}}},
		Dropoff:     b.Dropoff,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Stops) != 1 {
		t.Fatalf("stops = %d, want 1", len(updated.Stops))
	}
	if updated.StopSurchargeTotal.Amount != 60 {
		t.Fatalf("stop surcharge = %d, want 60", updated.StopSurchargeTotal.Amount)
	}
	if len(env.quoter.last.Stops) != 1 {
		t.Fatal("update must re-quote with the new stops")
	}
}

func TestUpdateAfterDispatchConflicts(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, _ := env.svc.Create(context.Background(), baseCommand())

	_, err := env.svc.Update(context.Background(), UpdateCommand{
		BookingID:   b.ID,
		PassengerID: "p1",
		Pickup:      b.Pickup,
		Dropoff:     b.Dropoff,
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestAcceptOffer(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, _ := env.svc.Create(context.Background(), baseCommand())

	got := acceptOffer(t, env, b.ID, "d1")
	if got.Status != StatusDriverAssigned {
		t.Fatalf("status = %s, want %s", got.Status, StatusDriverAssigned)
	}
	if got.DriverID == nil || *got.DriverID != "d1" {
		t.Fatalf("driver = %v, want d1", got.DriverID)
	}
}

func TestDeclineOfferRedispatchesToNextDriver(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1", "d2")
	b, _ := env.svc.Create(context.Background(), baseCommand())

	got, err := env.svc.RespondToOffer(context.Background(), RespondCommand{
		OfferID:  offerIDFor(t, env, b.ID),
		DriverID: "d1",
		Accept:   false,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPendingOffer {
		t.Fatalf("status = %s, want %s", got.Status, StatusPendingOffer)
	}
	if got.DriverID == nil || *got.DriverID != "d2" {
		t.Fatalf("driver = %v, want d2 after decline", got.DriverID)
	}
	if len(env.drivers.released) != 1 || env.drivers.released[0] != "d1" {
		t.Fatalf("released = %v, want [d1]", env.drivers.released)
	}
}

func TestDeclineOfferNoOtherDriverRequeues(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, _ := env.svc.Create(context.Background(), baseCommand())

	got, err := env.svc.RespondToOffer(context.Background(), RespondCommand{
		OfferID:  offerIDFor(t, env, b.ID),
		DriverID: "d1",
		Accept:   false,
	})
	if err != nil {
		t.Fatal(err)
	}
	// d1 is back online but already offered this booking, so it stays queued.
	if got.Status != StatusPendingAssignment {
		t.Fatalf("status = %s, want %s", got.Status, StatusPendingAssignment)
	}
	if got.DriverID != nil {
		t.Fatal("requeued booking must not keep a driver binding")
	}
	if got.TimeoutAt == nil {
		t.Fatal("requeued booking must get a fresh timeout window")
	}
}

func TestRespondWrongDriver(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, _ := env.svc.Create(context.Background(), baseCommand())

	_, err := env.svc.RespondToOffer(context.Background(), RespondCommand{
		OfferID:  offerIDFor(t, env, b.ID),
		DriverID: "d9",
		Accept:   true,
	})
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRespondToResolvedOfferConflicts(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, _ := env.svc.Create(context.Background(), baseCommand())
	offerID := offerIDFor(t, env, b.ID)
	acceptOffer(t, env, b.ID, "d1")

	_, err := env.svc.RespondToOffer(context.Background(), RespondCommand{
		OfferID:  offerID,
		DriverID: "d1",
		Accept:   false,
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestRideProgression(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, _ := env.svc.Create(context.Background(), baseCommand())
	acceptOffer(t, env, b.ID, "d1")
	ctx := context.Background()

	if err := env.svc.EnRoute(ctx, b.ID, "d1"); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.ArriveAtPickup(ctx, b.ID, "d1"); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.StartRide(ctx, b.ID, "d1", ""); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.Complete(ctx, b.ID, "d1"); err != nil {
		t.Fatal(err)
	}

	got, _ := env.store.Get(ctx, b.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", got.Status, StatusCompleted)
	}
	if len(env.drivers.assigned) != 0 {
		t.Fatal("driver must be released on completion")
	}
}

func TestProgressionOutOfOrderConflicts(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, _ := env.svc.Create(context.Background(), baseCommand())
	acceptOffer(t, env, b.ID, "d1")

	if err := env.svc.StartRide(context.Background(), b.ID, "d1", ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestProgressionWrongDriver(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	b, _ := env.svc.Create(context.Background(), baseCommand())
	acceptOffer(t, env, b.ID, "d1")

	if err := env.svc.EnRoute(context.Background(), b.ID, "d9"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestStartRideChecksAccountPin(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1")
	cmd := baseCommand()
	cmd.PaymentMethod = PayAccount
	b, _ := env.svc.Create(context.Background(), cmd)
	acceptOffer(t, env, b.ID, "d1")
	ctx := context.Background()

	if err := env.svc.EnRoute(ctx, b.ID, "d1"); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.ArriveAtPickup(ctx, b.ID, "d1"); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.StartRide(ctx, b.ID, "d1", "0000"); !errors.Is(err, apperr.ErrUnauthorized) {
		stored, _ := env.store.Get(ctx, b.ID)
		if stored.RidePin == "0000" {
			t.Skip("random pin collided with the test value")
		}
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	stored, _ := env.store.Get(ctx, b.ID)
	if err := env.svc.StartRide(ctx, b.ID, "d1", stored.RidePin); err != nil {
		t.Fatal(err)
	}
}

func TestSweepExpiresOfferAndRedispatches(t *testing.T) {
	env := newTestEnv(autoSettings(), "d1", "d2")
	b, _ := env.svc.Create(context.Background(), baseCommand())

	env.svc.now = func() time.Time { return time.Now().UTC().Add(5 * time.Minute) }
	env.svc.sweepOnce(context.Background())

	got, _ := env.store.Get(context.Background(), b.ID)
	if got.Status != StatusPendingOffer {
		t.Fatalf("status = %s, want %s", got.Status, StatusPendingOffer)
	}
	if got.DriverID == nil || *got.DriverID != "d2" {
		t.Fatalf("driver = %v, want d2 after expiry", got.DriverID)
	}
}

func TestSweepQueueTimeoutRematchExtendsWindow(t *testing.T) {
	env := newTestEnv(autoSettings())
	b, _ := env.svc.Create(context.Background(), baseCommand())

	env.svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	env.svc.sweepOnce(context.Background())

	got, _ := env.store.Get(context.Background(), b.ID)
	if got.Status != StatusPendingAssignment {
		t.Fatalf("status = %s, want %s", got.Status, StatusPendingAssignment)
	}
	if got.TimeoutAt == nil || !got.TimeoutAt.After(time.Now().UTC().Add(time.Hour)) {
		t.Fatal("rematch with no driver must extend the timeout window")
	}
}

func TestSweepQueueTimeoutUnassignablePolicy(t *testing.T) {
	settings := autoSettings()
	settings.QueuePolicy = operator.QueueUnassignable
	env := newTestEnv(settings)
	b, _ := env.svc.Create(context.Background(), baseCommand())

	env.svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	env.svc.sweepOnce(context.Background())

	got, _ := env.store.Get(context.Background(), b.ID)
	if got.Status != StatusUnassignable {
		t.Fatalf("status = %s, want %s", got.Status, StatusUnassignable)
	}
	if got.TimeoutAt != nil {
		t.Fatal("unassignable booking must drop its timeout")
	}
}

func offerIDFor(t *testing.T, env *testEnv, bookingID types.ID) types.ID {
	t.Helper()
	env.offers.mu.Lock()
	defer env.offers.mu.Unlock()
	for id, o := range env.offers.offers {
		if o.BookingID == bookingID {
			return id
		}
	}
	t.Fatalf("no offer for booking %s", bookingID)
	return ""
}

func acceptOffer(t *testing.T, env *testEnv, bookingID, driverID types.ID) *Booking {
	t.Helper()
	got, err := env.svc.RespondToOffer(context.Background(), RespondCommand{
		OfferID:  offerIDFor(t, env, bookingID),
		DriverID: driverID,
		Accept:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return got
}
