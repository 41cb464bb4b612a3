package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/market-pay/market_pay/internal/identity"
	"github.com/market-pay/market_pay/internal/ledger"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
	users   identity.Repository
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service, users identity.Repository) *Handler {
	return &Handler{service: service, users: users}
}

type transferRequest struct {
	ToUserID string `json:"to_user_id"`
	Amount   int64  `json:"amount"`
	Note     string `json:"note"`
}

// Transfer processes a wallet-to-wallet transfer from the authenticated user.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	sender, err := h.users.FindByID(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "user not found")
	}
	receiver, err := h.users.FindByID(c.UserContext(), req.ToUserID)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, "receiver not found")
	}

	err = h.service.Transfer(c.UserContext(), TransferInput{
		FromUserID: sender.ID,
		ToUserID:   receiver.ID,
		FromEmail:  sender.Email,
		ToEmail:    receiver.Email,
		Amount:     req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, ledger.ErrCurrencyMismatch):
			return fiber.NewError(http.StatusBadRequest, "currency mismatch")
		case errors.Is(err, ErrSameWallet):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"status": "ok"})
}
