// Ride offers: time-bounded proposals of one booking to one driver.
package offer

import (
	"time"

	"cabwise/internal/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// Snapshot is the frozen view of the booking captured when the offer was
// made. It is a deliberate denormalised copy, not a live reference: a later
// booking edit must not retroactively change the terms the driver saw.
type Snapshot struct {
	Pickup      types.Location
	Dropoff     types.Location
	Fare        types.Money
	VehicleType string
}

type Offer struct {
	ID          types.ID
	BookingID   types.ID
	DriverID    types.ID
	Status      Status
	Snapshot    Snapshot
	CreatedAt   time.Time
	RespondedAt *time.Time
	ExpiresAt   time.Time
}

func (o *Offer) Expired(now time.Time) bool {
	return o.Status == StatusPending && now.After(o.ExpiresAt)
}
