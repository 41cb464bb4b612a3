package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/market-pay/market_pay/internal/wallet"
)

// RegisterWalletRoutes wires the current user's wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Me)
	r.Get("/wallet/transactions", h.Transactions)
}
