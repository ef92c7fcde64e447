package maps

import (
	"context"
	"math"
	"time"

	"cabwise/internal/apperr"
	"cabwise/internal/types"
)

// HaversinePlanner estimates legs as straight-line distance at an assumed
// average speed. It exists only as an explicit, separately configured
// fallback mode; production quoting goes through the Directions API.
type HaversinePlanner struct {
	// AvgSpeedMph defaults to 20 when zero.
	AvgSpeedMph float64
}

func (h HaversinePlanner) GetRoute(_ context.Context, waypoints []types.Point) (Route, error) {
	if len(waypoints) < 2 {
		return Route{}, apperr.Validationf("route needs at least two waypoints")
	}
	speed := h.AvgSpeedMph
	if speed <= 0 {
		speed = 20
	}
	out := Route{Legs: make([]Leg, 0, len(waypoints)-1)}
	for i := 1; i < len(waypoints); i++ {
		miles := haversineMiles(waypoints[i-1], waypoints[i])
		out.Legs = append(out.Legs, Leg{
			DistanceMeters: int(math.Round(miles * metersPerMile)),
			Duration:       time.Duration(miles / speed * float64(time.Hour)),
		})
	}
	return out, nil
}

func haversineMiles(a, b types.Point) float64 {
	const earthRadiusMiles = 3958.8
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dlat := (b.Lat - a.Lat) * math.Pi / 180
	dlng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}
