package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/market-pay/market_pay/internal/withdrawal"
)

// RegisterWithdrawalRoutes wires the user-facing withdrawal endpoints.
func RegisterWithdrawalRoutes(r fiber.Router, h *withdrawal.Handler) {
	r.Post("/withdrawals", h.Request)
	r.Get("/withdrawals/:id", h.Get)
}
