// Driver records and the claim request used by dispatch.
package driver

import (
	"time"

	"cabwise/internal/modules/fare"
	"cabwise/internal/types"
)

type Availability string

const (
	AvailabilityOffline  Availability = "offline"
	AvailabilityOnline   Availability = "online"
	AvailabilityAssigned Availability = "assigned"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// PlatformScope is the shared pool operators may draw from when they allow
// cross-scope assignment.
const PlatformScope = "platform"

type Driver struct {
	ID               types.ID
	DisplayID        string
	Name             string
	OperatorScope    string
	VehicleType      fare.VehicleType
	Availability     Availability
	Status           Status
	CurrentBookingID *types.ID
	CreatedAt        time.Time
}

// ClaimRequest selects a driver for a booking. Exclude lists drivers who
// already declined or timed out on this booking.
type ClaimRequest struct {
	OperatorScope   string
	VehicleType     fare.VehicleType
	AllowCrossScope bool
	Exclude         []types.ID
	BookingID       types.ID
}
