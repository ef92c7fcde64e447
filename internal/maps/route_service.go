// Routing oracle: per-leg distance/duration for an ordered waypoint chain.
package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"cabwise/internal/apperr"
	"cabwise/internal/types"
)

const metersPerMile = 1609.344

// Leg is one hop of a route.
type Leg struct {
	DistanceMeters int
	Duration       time.Duration
}

// Route is the resolved waypoint chain pickup -> stops -> dropoff.
type Route struct {
	Legs []Leg
}

// Miles returns the total route distance in miles.
func (r Route) Miles() float64 {
	var m int
	for _, l := range r.Legs {
		m += l.DistanceMeters
	}
	return float64(m) / metersPerMile
}

// Minutes returns the total route duration in minutes.
func (r Route) Minutes() float64 {
	var d time.Duration
	for _, l := range r.Legs {
		d += l.Duration
	}
	return d.Minutes()
}

// Planner resolves a route for an ordered list of waypoints.
type Planner interface {
	GetRoute(ctx context.Context, waypoints []types.Point) (Route, error)
}

// RouteService resolves routes through the Google Maps Directions API.
type RouteService struct {
	client *maps.Client
	region string
}

func NewRouteService(apiKey, region string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &RouteService{client: client, region: region}, nil
}

func (s *RouteService) GetRoute(ctx context.Context, waypoints []types.Point) (Route, error) {
	if len(waypoints) < 2 {
		return Route{}, apperr.Validationf("route needs at least two waypoints")
	}
	r := &maps.DirectionsRequest{
		Origin:      latLng(waypoints[0]),
		Destination: latLng(waypoints[len(waypoints)-1]),
		Mode:        maps.TravelModeDriving,
		Region:      s.region,
	}
	for _, p := range waypoints[1 : len(waypoints)-1] {
		r.Waypoints = append(r.Waypoints, latLng(p))
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		// API/transport failures are retryable; the caller decides whether to.
		return Route{}, fmt.Errorf("directions request: %w: %v", apperr.ErrTransient, err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, apperr.ErrRouting
	}

	out := Route{Legs: make([]Leg, 0, len(routes[0].Legs))}
	for _, leg := range routes[0].Legs {
		out.Legs = append(out.Legs, Leg{DistanceMeters: leg.Distance.Meters, Duration: leg.Duration})
	}
	return out, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}
