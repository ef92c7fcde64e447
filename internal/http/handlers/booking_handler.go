// Booking handlers: intake, lookup, amendment, cancellation and the
// passenger long poll.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cabwise/internal/modules/booking"
	"cabwise/internal/modules/fare"
	"cabwise/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
	watcher  *booking.Watcher
}

func NewBookingHandler(bookings *booking.Service, watcher *booking.Watcher) *BookingHandler {
	return &BookingHandler{bookings: bookings, watcher: watcher}
}

type createBookingRequest struct {
	PassengerID       string         `json:"passenger_id"`
	OperatorScope     string         `json:"operator_scope"`
	Pickup            locationDTO    `json:"pickup"`
	Stops             []locationDTO  `json:"stops"`
	Dropoff           locationDTO    `json:"dropoff"`
	VehicleType       string         `json:"vehicle_type"`
	Passengers        int            `json:"passengers"`
	PaymentMethod     string         `json:"payment_method"`
	ScheduledPickupAt *time.Time     `json:"scheduled_pickup_at"`
	WaitAndReturn     bool           `json:"wait_and_return"`
	WaitMinutes       int            `json:"wait_minutes"`
	Priority          bool           `json:"priority"`
	Quoted            *quotedFareDTO `json:"quoted"`
}

// quotedFareDTO carries a previously issued quote into intake so the fare is
// not computed twice.
type quotedFareDTO struct {
	FareAmount      int64   `json:"fare_amount"`
	FareCurrency    string  `json:"fare_currency"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
}

type bookingResponse struct {
	ID                string        `json:"id"`
	DisplayID         string        `json:"display_id"`
	PassengerID       string        `json:"passenger_id"`
	OperatorScope     string        `json:"operator_scope"`
	Pickup            locationDTO   `json:"pickup"`
	Stops             []locationDTO `json:"stops"`
	Dropoff           locationDTO   `json:"dropoff"`
	VehicleType       string        `json:"vehicle_type"`
	Passengers        int           `json:"passengers"`
	PaymentMethod     string        `json:"payment_method"`
	FareAmount        int64         `json:"fare_amount"`
	FareCurrency      string        `json:"fare_currency"`
	SurgeApplied      bool          `json:"surge_applied"`
	SurgeMultiplier   float64       `json:"surge_multiplier"`
	Status            string        `json:"status"`
	StatusVersion     int           `json:"status_version"`
	AssignmentMethod  string        `json:"assignment_method"`
	DriverID          *string       `json:"driver_id,omitempty"`
	ScheduledPickupAt *time.Time    `json:"scheduled_pickup_at,omitempty"`
	RidePin           string        `json:"ride_pin,omitempty"`
	WaitAndReturn     bool          `json:"wait_and_return"`
	Priority          bool          `json:"priority"`
	CancelReason      *string       `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

func toBookingResponse(b *booking.Booking) bookingResponse {
	resp := bookingResponse{
		ID:                string(b.ID),
		DisplayID:         b.DisplayID,
		PassengerID:       string(b.PassengerID),
		OperatorScope:     b.OperatorScope,
		Pickup:            fromLocation(b.Pickup),
		Stops:             fromLocations(b.Stops),
		Dropoff:           fromLocation(b.Dropoff),
		VehicleType:       string(b.VehicleType),
		Passengers:        b.Passengers,
		PaymentMethod:     string(b.PaymentMethod),
		FareAmount:        b.FareEstimate.Amount,
		FareCurrency:      b.FareEstimate.Currency,
		SurgeApplied:      b.SurgeApplied,
		SurgeMultiplier:   b.SurgeMultiplier,
		Status:            string(b.Status),
		StatusVersion:     b.StatusVersion,
		AssignmentMethod:  string(b.AssignmentMethod),
		ScheduledPickupAt: b.ScheduledPickupAt,
		RidePin:           b.RidePin,
		WaitAndReturn:     b.WaitAndReturn,
		Priority:          b.Priority,
		CancelReason:      b.CancelReason,
		CreatedAt:         b.CreatedAt,
	}
	if b.DriverID != nil {
		id := string(*b.DriverID)
		resp.DriverID = &id
	}
	return resp
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := booking.CreateCommand{
		PassengerID:       types.ID(req.PassengerID),
		OperatorScope:     req.OperatorScope,
		Pickup:            req.Pickup.toLocation(),
		Stops:             toLocations(req.Stops),
		Dropoff:           req.Dropoff.toLocation(),
		VehicleType:       fare.VehicleType(req.VehicleType),
		Passengers:        req.Passengers,
		PaymentMethod:     booking.PaymentMethod(req.PaymentMethod),
		ScheduledPickupAt: req.ScheduledPickupAt,
		WaitAndReturn:     req.WaitAndReturn,
		WaitMinutes:       req.WaitMinutes,
		Priority:          req.Priority,
	}
	if req.Quoted != nil {
		cmd.Quoted = &fare.Quote{
			Fare:            types.Money{Amount: req.Quoted.FareAmount, Currency: req.Quoted.FareCurrency},
			SurgeMultiplier: req.Quoted.SurgeMultiplier,
		}
	}
	b, err := h.bookings.Create(c.Request.Context(), cmd)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

type cancelBookingRequest struct {
	PassengerID string `json:"passenger_id"`
	Reason      string `json:"reason"`
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := types.ID(c.Param("id"))
	if err := h.bookings.Cancel(c.Request.Context(), id, types.ID(req.PassengerID), req.Reason); err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(booking.StatusCancelled)})
}

type updateBookingRequest struct {
	PassengerID       string        `json:"passenger_id"`
	Pickup            locationDTO   `json:"pickup"`
	Stops             []locationDTO `json:"stops"`
	Dropoff           locationDTO   `json:"dropoff"`
	ScheduledPickupAt *time.Time    `json:"scheduled_pickup_at"`
}

func (h *BookingHandler) Update(c *gin.Context) {
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.bookings.Update(c.Request.Context(), booking.UpdateCommand{
		BookingID:         types.ID(c.Param("id")),
		PassengerID:       types.ID(req.PassengerID),
		Pickup:            req.Pickup.toLocation(),
		Stops:             toLocations(req.Stops),
		Dropoff:           req.Dropoff.toLocation(),
		ScheduledPickupAt: req.ScheduledPickupAt,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

type watchResponse struct {
	Outcome string           `json:"outcome"` // changed, timeout or none
	Booking *bookingResponse `json:"booking,omitempty"`
}

// Watch is the passenger long poll. The connection is held until the active
// booking changes or the watch window closes; either way the latest snapshot
// comes back and the client polls again. A passenger with no active ride gets
// an explicit "none" outcome rather than an error.
func (h *BookingHandler) Watch(c *gin.Context) {
	res, err := h.watcher.Watch(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		if c.Request.Context().Err() != nil {
			// Client went away; nothing to write.
			return
		}
		writeAppError(c, err)
		return
	}
	if res.Booking == nil {
		c.JSON(http.StatusOK, watchResponse{Outcome: "none"})
		return
	}
	outcome := "timeout"
	if res.Changed {
		outcome = "changed"
	}
	snapshot := toBookingResponse(res.Booking)
	c.JSON(http.StatusOK, watchResponse{Outcome: outcome, Booking: &snapshot})
}

func (h *BookingHandler) GetActive(c *gin.Context) {
	b, err := h.bookings.GetActiveByPassenger(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}
