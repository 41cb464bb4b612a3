package withdrawal

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/market-pay/market_pay/internal/identity"
	"github.com/market-pay/market_pay/internal/ledger"
)

// Handler exposes withdrawal HTTP endpoints, including the payout-provider
// callback that advances the lifecycle.
type Handler struct {
	service        *Service
	lifecycle      *Lifecycle
	users          identity.Repository
	providerSecret string
}

// NewHandler constructs a withdrawal HTTP handler.
func NewHandler(service *Service, lifecycle *Lifecycle, users identity.Repository, providerSecret string) *Handler {
	return &Handler{service: service, lifecycle: lifecycle, users: users, providerSecret: providerSecret}
}

type requestBody struct {
	Amount int64 `json:"amount"`
}

// Request opens a withdrawal for the authenticated user.
func (h *Handler) Request(c *fiber.Ctx) error {
	var req requestBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.users.FindByID(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "user not found")
	}

	w, err := h.service.Request(c.UserContext(), RequestInput{UserID: uid, Email: user.Email, Amount: req.Amount})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(withdrawalResponse(w))
}

// Get returns one of the authenticated user's withdrawals.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, err := h.service.Find(c.UserContext(), c.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, "withdrawal not found")
	}
	if w.UserID != uid {
		return fiber.NewError(http.StatusNotFound, "withdrawal not found")
	}
	return c.Status(http.StatusOK).JSON(withdrawalResponse(w))
}

type providerCallback struct {
	Event string `json:"event"`
}

// ProviderCallback is the external trigger that advances created ->
// inProgress -> completed|failed. It is authenticated by a shared secret.
func (h *Handler) ProviderCallback(c *fiber.Ctx) error {
	if h.providerSecret == "" || c.Get("X-Provider-Secret") != h.providerSecret {
		return fiber.NewError(http.StatusUnauthorized, "invalid provider secret")
	}

	var req providerCallback
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	id := c.Params("id")

	var (
		claimed bool
		err     error
	)
	switch req.Event {
	case "processing":
		claimed, err = h.lifecycle.Begin(c.UserContext(), id)
	case "successful":
		claimed, err = h.lifecycle.Resolve(c.UserContext(), id, true)
	case "failed":
		claimed, err = h.lifecycle.Resolve(c.UserContext(), id, false)
	default:
		return fiber.NewError(http.StatusBadRequest, "unknown event")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"claimed": claimed})
}

func withdrawalResponse(w Withdrawal) fiber.Map {
	return fiber.Map{
		"id":             w.ID,
		"amount":         w.Amount,
		"charged_amount": w.ChargedAmount,
		"currency":       w.Currency,
		"status":         w.Status,
		"created_at":     w.CreatedAt,
	}
}
