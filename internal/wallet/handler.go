package wallet

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const defaultHistoryLimit = 50

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Me returns the authenticated user's wallet, creating it on first access.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	w, err := h.service.GetOrCreate(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id":  w.UserID,
		"balance":  fiber.Map{"amount": w.Balance.Amount, "currency": w.Balance.Currency},
		"updated":  w.UpdatedAt,
	})
}

// Transactions returns the authenticated user's ledger history.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	entries, err := h.service.History(c.UserContext(), uid, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, t := range entries {
		out = append(out, fiber.Map{
			"id":           t.ID,
			"title":        t.Title,
			"amount":       t.Amount,
			"currency":     t.Currency,
			"status":       t.Status,
			"kind":         t.Kind,
			"note":         t.Note,
			"counterparty": t.CounterpartyID,
			"created_at":   t.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}
