package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/market-pay/market_pay/internal/auth"
)

// RegisterAuthRoutes wires the public authentication endpoints. Logout needs
// an authenticated user and is registered with the protected routes.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/refresh", h.Refresh)
}
