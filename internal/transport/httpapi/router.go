// Package httpapi: REST-поверхность ядра бронирования на gin.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/table-booking/internal/auth"
)

func NewRouter(ledger Ledger, secret []byte, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := NewHandler(ledger)
	v1 := r.Group("/v1")

	// Доступность открыта без авторизации.
	v1.GET("/restaurants/:restaurantId/availability", h.Availability)
	v1.GET("/restaurants/:restaurantId/alternatives", h.Alternatives)

	private := v1.Group("", JWTAuth(secret))
	private.GET("/restaurants/:restaurantId/bookings", RequireRole(auth.RoleRestaurant), h.RestaurantBookings)

	bookings := private.Group("/bookings")
	bookings.POST("", RequireRole(auth.RoleCustomer), h.CreateBooking)
	bookings.GET("/mine", h.MyBookings)
	bookings.GET("/:id", h.GetBooking)
	bookings.PUT("/:id", RequireRole(auth.RoleCustomer), h.UpdateBooking)
	bookings.POST("/:id/confirm", RequireRole(auth.RoleRestaurant), h.ConfirmBooking)
	bookings.POST("/:id/cancel", h.CancelBooking)

	return r
}
