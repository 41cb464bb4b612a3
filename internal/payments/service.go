package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/market-pay/market_pay/internal/ledger"
	"github.com/market-pay/market_pay/internal/notification"
)

// ErrSameWallet indicates a transfer where sender and receiver are the same user.
var ErrSameWallet = errors.New("cannot transfer to the same wallet")

// Service is the transfer engine: it orchestrates atomic balance changes plus
// ledger entries for transfers, credits and debits.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a transfer engine.
func NewService(store ledger.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger}
}

// TransferInput captures the data needed to move funds between two users.
type TransferInput struct {
	FromUserID string
	ToUserID   string
	FromEmail  string
	ToEmail    string
	Amount     int64
	Note       string
}

// Transfer atomically moves Amount from one wallet to the other. On
// ledger.ErrInsufficientBalance nothing is written anywhere. The receiver is
// notified after commit; notification failures are logged, never propagated.
func (s *Service) Transfer(ctx context.Context, input TransferInput) error {
	if input.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if input.FromUserID == input.ToUserID {
		return ErrSameWallet
	}

	err := s.store.Transfer(ctx, ledger.TransferData{
		From:      input.FromUserID,
		To:        input.ToUserID,
		FromEmail: input.FromEmail,
		ToEmail:   input.ToEmail,
		Amount:    input.Amount,
		Note:      input.Note,
	})
	if err != nil {
		return err
	}

	s.notify(ctx, input.ToUserID, notification.Payload{
		Title: "You received money",
		Body:  fmt.Sprintf("You received %d from another wallet", input.Amount),
		Data: map[string]any{
			"type":   notification.TypeTransferReceived,
			"from":   input.FromUserID,
			"amount": input.Amount,
		},
	})
	return nil
}

// AdjustInput captures a single-wallet credit or debit. Amount is a positive
// quantity; the engine applies the sign convention.
type AdjustInput struct {
	UserID       string
	Email        string
	Amount       int64
	Title        string
	Status       ledger.TransactionStatus
	Kind         ledger.TransactionKind
	Note         string
	WithdrawalID string
}

// Credit adds Amount to the user's wallet and appends one ledger entry in the
// same atomic scope.
func (s *Service) Credit(ctx context.Context, input AdjustInput) (ledger.Wallet, error) {
	return s.adjust(ctx, input, input.Amount)
}

// Debit removes Amount from the user's wallet and appends one ledger entry in
// the same atomic scope. Fails with ledger.ErrInsufficientBalance, appending
// nothing, if the wallet would go negative.
func (s *Service) Debit(ctx context.Context, input AdjustInput) (ledger.Wallet, error) {
	return s.adjust(ctx, input, -input.Amount)
}

func (s *Service) adjust(ctx context.Context, input AdjustInput, delta int64) (ledger.Wallet, error) {
	if input.Amount <= 0 {
		return ledger.Wallet{}, fmt.Errorf("amount must be positive")
	}
	return s.store.ApplyDelta(ctx, input.UserID, delta, ledger.Entry{
		Email:        input.Email,
		Title:        input.Title,
		Status:       input.Status,
		Kind:         input.Kind,
		Note:         input.Note,
		WithdrawalID: input.WithdrawalID,
	})
}

func (s *Service) notify(ctx context.Context, userID string, payload notification.Payload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, []string{userID}, payload); err != nil && s.logger != nil {
		s.logger.Error("send notification", "user_id", userID, "error", err)
	}
}
