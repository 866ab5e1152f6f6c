// Package httpapi is the public booking API used by the customer frontend.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	CORSOrigins        []string
	RateLimitPerMinute int
	Logger             *slog.Logger
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Idempotency-Key"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	if opts.RateLimitPerMinute > 0 {
		api.Use(newRateLimiter(opts.RateLimitPerMinute, log).middleware())
	}
	{
		api.GET("/services", h.ListServices)

		bookings := api.Group("/bookings")
		bookings.POST("", h.CreateBooking)
		bookings.GET("/:id", h.GetBooking)
		bookings.DELETE("/:id", h.CancelBooking)

		availability := api.Group("/availability")
		availability.GET("/:date", h.GetDayAvailability)
		availability.GET("/slots/:date", h.ListStartSlots)
		availability.GET("/current-slots/:bookingId", h.CurrentSlots)
		availability.GET("/booking-details/:date/:slot", h.BookingDetails)
	}

	return r
}
