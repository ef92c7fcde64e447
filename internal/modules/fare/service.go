// Fare engine: converts a routed waypoint chain plus ride parameters into a
// priced quote. Deterministic given the route and tariff.
package fare

import (
	"context"
	"fmt"
	"math"

	"cabwise/internal/apperr"
	"cabwise/internal/config"
	"cabwise/internal/maps"
	"cabwise/internal/types"
)

type Service struct {
	store   *Store
	planner maps.Planner
	tariff  config.TariffConfig
}

// NewService builds the engine. store may be nil, in which case per-operator
// tariff overrides are skipped and the configured defaults always apply.
func NewService(store *Store, planner maps.Planner, tariff config.TariffConfig) *Service {
	return &Service{store: store, planner: planner, tariff: tariff}
}

// Quote runs the fare pipeline:
//
//	one-way = base + duration·perMinute + (distance·perMile + firstMile) + stops·perStop + bookingFee
//	× vehicle class × passenger adjustment, + pet surcharge, clamp to minimum,
//	wait-and-return uplift, + priority fee, × surge (last), round to pence.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if !req.VehicleType.Valid() {
		return Quote{}, apperr.Validationf("unknown vehicle type %q", req.VehicleType)
	}
	if req.Passengers < 1 {
		return Quote{}, apperr.Validationf("passenger count must be at least 1")
	}

	tariff, err := s.tariffFor(ctx, req.OperatorScope)
	if err != nil {
		return Quote{}, err
	}

	route, err := s.planner.GetRoute(ctx, waypoints(req))
	if err != nil {
		return Quote{}, fmt.Errorf("quote fare: %w", err)
	}
	miles := route.Miles()
	minutes := route.Minutes()

	breakdown := make(map[string]int64)
	var oneWay float64
	if miles > 0 {
		timeCharge := minutes * float64(tariff.PerMinute)
		distanceCharge := miles*float64(tariff.PerMile) + float64(tariff.FirstMileSurcharge)
		stopCharge := float64(len(req.Stops)) * float64(tariff.PerStopSurcharge)
		oneWay = float64(tariff.BaseFare) + timeCharge + distanceCharge + stopCharge + float64(tariff.BookingFee)
		breakdown["base"] = tariff.BaseFare
		breakdown["time"] = int64(math.Round(timeCharge))
		breakdown["distance"] = int64(math.Round(distanceCharge))
		breakdown["stops"] = int64(math.Round(stopCharge))
		breakdown["booking_fee"] = tariff.BookingFee
	}

	adj := classMultiplier[req.VehicleType] * (1 + 0.1*float64(max(0, req.Passengers-1)))
	total := oneWay * adj

	if req.VehicleType == VehiclePetFriendly {
		total += float64(tariff.PetSurcharge)
		breakdown["pet_surcharge"] = tariff.PetSurcharge
	}

	if minFare := float64(tariff.MinimumFare); total < minFare {
		total = minFare
		breakdown["minimum_applied"] = tariff.MinimumFare
	}

	if req.WaitAndReturn {
		total *= 1 + tariff.ReturnSurchargePct
		billableWait := max(0, req.WaitMinutes-tariff.FreeWaitMinutes)
		waitCharge := float64(billableWait) * float64(tariff.PerWaitMinute)
		total += waitCharge
		breakdown["wait_charge"] = int64(math.Round(waitCharge))
	}

	if req.Priority {
		total += float64(tariff.PriorityFee)
		breakdown["priority_fee"] = tariff.PriorityFee
	}

	// Surge multiplies the fully loaded fare, so it must stay the last step.
	surge := 1.0
	if req.SurgeApplied && req.SurgeMultiplier > 1 {
		surge = req.SurgeMultiplier
	}
	total *= surge

	return Quote{
		Fare:            types.Money{Amount: int64(math.Round(total)), Currency: tariff.Currency},
		DistanceMiles:   miles,
		DurationMinutes: minutes,
		SurgeMultiplier: surge,
		Breakdown:       breakdown,
	}, nil
}

func (s *Service) tariffFor(ctx context.Context, operatorScope string) (config.TariffConfig, error) {
	if s.store == nil || operatorScope == "" {
		return s.tariff, nil
	}
	override, ok, err := s.store.GetTariff(ctx, operatorScope)
	if err != nil {
		return config.TariffConfig{}, err
	}
	if !ok {
		return s.tariff, nil
	}
	return override, nil
}

func waypoints(req QuoteRequest) []types.Point {
	pts := make([]types.Point, 0, len(req.Stops)+2)
	pts = append(pts, req.Pickup.Point)
	for _, stop := range req.Stops {
		pts = append(pts, stop.Point)
	}
	return append(pts, req.Dropoff.Point)
}
