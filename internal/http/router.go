// HTTP route registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cabwise/internal/http/handlers"
	"cabwise/internal/http/middleware"
	"cabwise/internal/modules/booking"
	"cabwise/internal/modules/driver"
	"cabwise/internal/modules/fare"
)

func NewRouter(
	bookingService *booking.Service,
	watcher *booking.Watcher,
	driverService *driver.Service,
	fareService *fare.Service,
	logger *zap.Logger,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger), middleware.Metrics())

	quoteHandler := handlers.NewQuoteHandler(fareService)
	r.POST("/api/quotes", quoteHandler.Create)

	bookingHandler := handlers.NewBookingHandler(bookingService, watcher)
	r.POST("/api/bookings", bookingHandler.Create)
	r.GET("/api/bookings/:id", bookingHandler.Get)
	r.PUT("/api/bookings/:id", bookingHandler.Update)
	r.POST("/api/bookings/:id/cancel", bookingHandler.Cancel)
	r.GET("/api/passengers/:id/bookings/active", bookingHandler.GetActive)
	r.GET("/api/passengers/:id/bookings/watch", bookingHandler.Watch)

	driverHandler := handlers.NewDriverHandler(driverService, bookingService)
	r.POST("/api/drivers", driverHandler.Register)
	r.GET("/api/drivers/:id", driverHandler.Get)
	r.PUT("/api/drivers/:id/availability", driverHandler.SetAvailability)
	r.POST("/api/offers/:id/respond", driverHandler.RespondToOffer)
	r.POST("/api/bookings/:id/en-route", driverHandler.EnRoute)
	r.POST("/api/bookings/:id/at-pickup", driverHandler.ArriveAtPickup)
	r.POST("/api/bookings/:id/start", driverHandler.StartRide)
	r.POST("/api/bookings/:id/complete", driverHandler.Complete)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
