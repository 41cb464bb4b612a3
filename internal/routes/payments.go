package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/market-pay/market_pay/internal/payments"
)

// RegisterPaymentRoutes wires payment endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/payments/transfer", h.Transfer)
}
