// Booking aggregate, status machine and event definitions.
package booking

import (
	"time"

	"cabwise/internal/modules/fare"
	"cabwise/internal/types"
)

type Status string

const (
	StatusPendingAssignment Status = "pending_assignment"
	StatusPendingOffer      Status = "pending_offer"
	StatusDriverAssigned    Status = "driver_assigned"
	StatusEnRouteToPickup   Status = "en_route_to_pickup"
	StatusAtPickup          Status = "at_pickup"
	StatusInProgress        Status = "in_progress"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
	StatusUnassignable      Status = "unassignable"
)

type AssignmentMethod string

const (
	AssignAutoImmediate AssignmentMethod = "auto_immediate"
	AssignManualQueued  AssignmentMethod = "manual_queued"
	AssignQueued        AssignmentMethod = "queued"
)

type PaymentMethod string

const (
	PayCard    PaymentMethod = "card"
	PayCash    PaymentMethod = "cash"
	PayAccount PaymentMethod = "account"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PayCard, PayCash, PayAccount:
		return true
	}
	return false
}

type Booking struct {
	ID                 types.ID
	DisplayID          string
	PassengerID        types.ID
	OperatorScope      string
	Pickup             types.Location
	Stops              []types.Location
	Dropoff            types.Location
	VehicleType        fare.VehicleType
	Passengers         int
	PaymentMethod      PaymentMethod
	FareEstimate       types.Money
	SurgeApplied       bool
	SurgeMultiplier    float64
	StopSurchargeTotal types.Money
	ScheduledPickupAt  *time.Time
	DriverID           *types.ID
	Status             Status
	StatusVersion      int
	AssignmentMethod   AssignmentMethod
	DispatchMode       string
	TimeoutAt          *time.Time
	RidePin            string
	WaitAndReturn      bool
	WaitMinutes        int
	Priority           bool
	CancelReason       *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Active reports whether the booking still needs watching by the passenger:
// anything between intake and the terminal states.
func (b *Booking) Active() bool {
	switch b.Status {
	case StatusPendingAssignment, StatusPendingOffer, StatusDriverAssigned,
		StatusEnRouteToPickup, StatusAtPickup, StatusInProgress:
		return true
	}
	return false
}

// AllowedTransitions is the booking state flow as data. Cancellation is only
// permitted while the booking is still queued; once an offer is out, decline
// and expiry loop it back to the queue for rematching.
var AllowedTransitions = map[Status][]Status{
	StatusPendingAssignment: {StatusPendingOffer, StatusCancelled, StatusUnassignable},
	StatusPendingOffer:      {StatusDriverAssigned, StatusPendingAssignment},
	StatusDriverAssigned:    {StatusEnRouteToPickup},
	StatusEnRouteToPickup:   {StatusAtPickup},
	StatusAtPickup:          {StatusInProgress},
	StatusInProgress:        {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Event is one row of the booking audit trail.
type Event struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}
