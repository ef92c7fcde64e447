// Driver handlers: registration, availability, offer responses and ride
// progression.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cabwise/internal/modules/booking"
	"cabwise/internal/modules/driver"
	"cabwise/internal/modules/fare"
	"cabwise/internal/types"
)

type DriverHandler struct {
	drivers  *driver.Service
	bookings *booking.Service
}

func NewDriverHandler(drivers *driver.Service, bookings *booking.Service) *DriverHandler {
	return &DriverHandler{drivers: drivers, bookings: bookings}
}

type registerDriverRequest struct {
	Name          string `json:"name"`
	OperatorScope string `json:"operator_scope"`
	VehicleType   string `json:"vehicle_type"`
}

type driverResponse struct {
	ID            string    `json:"id"`
	DisplayID     string    `json:"display_id"`
	Name          string    `json:"name"`
	OperatorScope string    `json:"operator_scope"`
	VehicleType   string    `json:"vehicle_type"`
	Availability  string    `json:"availability"`
	Status        string    `json:"status"`
	BookingID     *string   `json:"current_booking_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toDriverResponse(d *driver.Driver) driverResponse {
	resp := driverResponse{
		ID:            string(d.ID),
		DisplayID:     d.DisplayID,
		Name:          d.Name,
		OperatorScope: d.OperatorScope,
		VehicleType:   string(d.VehicleType),
		Availability:  string(d.Availability),
		Status:        string(d.Status),
		CreatedAt:     d.CreatedAt,
	}
	if d.CurrentBookingID != nil {
		id := string(*d.CurrentBookingID)
		resp.BookingID = &id
	}
	return resp
}

func (h *DriverHandler) Register(c *gin.Context) {
	var req registerDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.drivers.Register(c.Request.Context(), driver.RegisterCommand{
		Name:          req.Name,
		OperatorScope: req.OperatorScope,
		VehicleType:   fare.VehicleType(req.VehicleType),
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDriverResponse(d))
}

func (h *DriverHandler) Get(c *gin.Context) {
	d, err := h.drivers.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDriverResponse(d))
}

type availabilityRequest struct {
	Availability string `json:"availability"`
}

func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := types.ID(c.Param("id"))
	if err := h.drivers.SetAvailability(c.Request.Context(), id, driver.Availability(req.Availability)); err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": req.Availability})
}

type respondOfferRequest struct {
	DriverID string `json:"driver_id"`
	Accept   bool   `json:"accept"`
}

func (h *DriverHandler) RespondToOffer(c *gin.Context) {
	var req respondOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.bookings.RespondToOffer(c.Request.Context(), booking.RespondCommand{
		OfferID:  types.ID(c.Param("id")),
		DriverID: types.ID(req.DriverID),
		Accept:   req.Accept,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

type progressionRequest struct {
	DriverID string `json:"driver_id"`
	RidePin  string `json:"ride_pin"`
}

func (h *DriverHandler) progress(c *gin.Context, advance func(bookingID, driverID types.ID, pin string) error) {
	var req progressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := types.ID(c.Param("id"))
	if err := advance(id, types.ID(req.DriverID), req.RidePin); err != nil {
		writeAppError(c, err)
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *DriverHandler) EnRoute(c *gin.Context) {
	h.progress(c, func(bookingID, driverID types.ID, _ string) error {
		return h.bookings.EnRoute(c.Request.Context(), bookingID, driverID)
	})
}

func (h *DriverHandler) ArriveAtPickup(c *gin.Context) {
	h.progress(c, func(bookingID, driverID types.ID, _ string) error {
		return h.bookings.ArriveAtPickup(c.Request.Context(), bookingID, driverID)
	})
}

func (h *DriverHandler) StartRide(c *gin.Context) {
	h.progress(c, func(bookingID, driverID types.ID, pin string) error {
		return h.bookings.StartRide(c.Request.Context(), bookingID, driverID, pin)
	})
}

func (h *DriverHandler) Complete(c *gin.Context) {
	h.progress(c, func(bookingID, driverID types.ID, _ string) error {
		return h.bookings.Complete(c.Request.Context(), bookingID, driverID)
	})
}
