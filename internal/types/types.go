// Common value objects shared across modules.
package types

// ID is a store-assigned identifier (UUID string).
type ID string

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is an addressable waypoint on a booking: a street address plus
// coordinates and an optional flat/unit descriptor.
type Location struct {
	Address string `json:"address"`
	Point   Point  `json:"point"`
	Unit    string `json:"unit,omitempty"`
}
