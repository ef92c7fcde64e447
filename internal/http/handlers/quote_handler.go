package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cabwise/internal/modules/fare"
	"cabwise/internal/types"
)

type locationDTO struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Unit    string  `json:"unit,omitempty"`
}

func (l locationDTO) toLocation() types.Location {
	return types.Location{
		Address: l.Address,
		Point:   types.Point{Lat: l.Lat, Lng: l.Lng},
		Unit:    l.Unit,
	}
}

func fromLocation(l types.Location) locationDTO {
	return locationDTO{Address: l.Address, Lat: l.Point.Lat, Lng: l.Point.Lng, Unit: l.Unit}
}

func toLocations(in []locationDTO) []types.Location {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.Location, 0, len(in))
	for _, l := range in {
		out = append(out, l.toLocation())
	}
	return out
}

func fromLocations(in []types.Location) []locationDTO {
	out := make([]locationDTO, 0, len(in))
	for _, l := range in {
		out = append(out, fromLocation(l))
	}
	return out
}

type QuoteHandler struct {
	fares *fare.Service
}

func NewQuoteHandler(fares *fare.Service) *QuoteHandler {
	return &QuoteHandler{fares: fares}
}

type quoteRequest struct {
	Pickup          locationDTO   `json:"pickup"`
	Stops           []locationDTO `json:"stops"`
	Dropoff         locationDTO   `json:"dropoff"`
	VehicleType     string        `json:"vehicle_type"`
	Passengers      int           `json:"passengers"`
	WaitAndReturn   bool          `json:"wait_and_return"`
	WaitMinutes     int           `json:"wait_minutes"`
	Priority        bool          `json:"priority"`
	OperatorScope   string        `json:"operator_scope"`
	SurgeApplied    bool          `json:"surge_applied"`
	SurgeMultiplier float64       `json:"surge_multiplier"`
}

type quoteResponse struct {
	FareAmount      int64            `json:"fare_amount"`
	FareCurrency    string           `json:"fare_currency"`
	DistanceMiles   float64          `json:"distance_miles"`
	DurationMinutes float64          `json:"duration_minutes"`
	SurgeMultiplier float64          `json:"surge_multiplier"`
	Breakdown       map[string]int64 `json:"breakdown"`
}

func (h *QuoteHandler) Create(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	quote, err := h.fares.Quote(c.Request.Context(), fare.QuoteRequest{
		Pickup:          req.Pickup.toLocation(),
		Stops:           toLocations(req.Stops),
		Dropoff:         req.Dropoff.toLocation(),
		VehicleType:     fare.VehicleType(req.VehicleType),
		Passengers:      req.Passengers,
		WaitAndReturn:   req.WaitAndReturn,
		WaitMinutes:     req.WaitMinutes,
		Priority:        req.Priority,
		SurgeApplied:    req.SurgeApplied,
		SurgeMultiplier: req.SurgeMultiplier,
		OperatorScope:   req.OperatorScope,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResponse{
		FareAmount:      quote.Fare.Amount,
		FareCurrency:    quote.Fare.Currency,
		DistanceMiles:   quote.DistanceMiles,
		DurationMinutes: quote.DurationMinutes,
		SurgeMultiplier: quote.SurgeMultiplier,
		Breakdown:       quote.Breakdown,
	})
}
