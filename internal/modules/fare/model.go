// Vehicle classes and quote shapes for the fare engine.
package fare

import (
	"cabwise/internal/types"
)

type VehicleType string

const (
	VehicleCar         VehicleType = "car"
	VehicleEstate      VehicleType = "estate"
	VehicleMinibus6    VehicleType = "minibus_6"
	VehicleMinibus8    VehicleType = "minibus_8"
	VehiclePetFriendly VehicleType = "pet_friendly"
	VehicleWheelchair  VehicleType = "wheelchair_access"
)

// classMultiplier scales the one-way fare per vehicle class. Pet-friendly
// rides run at the car rate plus a flat surcharge instead.
var classMultiplier = map[VehicleType]float64{
	VehicleCar:         1.0,
	VehicleEstate:      1.2,
	VehicleMinibus6:    1.5,
	VehicleMinibus8:    1.6,
	VehiclePetFriendly: 1.0,
	VehicleWheelchair:  2.0,
}

func (v VehicleType) Valid() bool {
	_, ok := classMultiplier[v]
	return ok
}

// QuoteRequest carries everything the fare pipeline needs. Surge fields are
// resolved from operator settings by the caller; the engine applies them last.
type QuoteRequest struct {
	Pickup          types.Location
	Stops           []types.Location
	Dropoff         types.Location
	VehicleType     VehicleType
	Passengers      int
	WaitAndReturn   bool
	WaitMinutes     int
	Priority        bool
	SurgeApplied    bool
	SurgeMultiplier float64
	OperatorScope   string
}

type Quote struct {
	Fare            types.Money
	DistanceMiles   float64
	DurationMinutes float64
	SurgeMultiplier float64
	Breakdown       map[string]int64
}
