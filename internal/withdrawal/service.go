package withdrawal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/market-pay/market_pay/internal/ledger"
	"github.com/market-pay/market_pay/internal/payments"
)

// Service creates withdrawal requests: it debits the charged amount from the
// wallet and records a created withdrawal for the payout provider to pick up.
type Service struct {
	repo   Repository
	engine *payments.Service
	fee    int64
	logger *slog.Logger
}

// NewService constructs a withdrawal service. fee is a flat charge in minor
// units added on top of the requested amount.
func NewService(repo Repository, engine *payments.Service, fee int64, logger *slog.Logger) *Service {
	if fee < 0 {
		fee = 0
	}
	return &Service{repo: repo, engine: engine, fee: fee, logger: logger}
}

// RequestInput captures the data needed to open a withdrawal.
type RequestInput struct {
	UserID string
	Email  string
	Amount int64
}

// Request debits amount + fee from the user's wallet and inserts a created
// withdrawal. On ledger.ErrInsufficientBalance nothing is written.
func (s *Service) Request(ctx context.Context, input RequestInput) (Withdrawal, error) {
	if input.Amount <= 0 {
		return Withdrawal{}, fmt.Errorf("amount must be positive")
	}

	id := uuid.New().String()
	charged := input.Amount + s.fee

	w, err := s.engine.Debit(ctx, payments.AdjustInput{
		UserID:       input.UserID,
		Email:        input.Email,
		Amount:       charged,
		Title:        "Withdrawal requested",
		Kind:         ledger.KindWithdrawal,
		WithdrawalID: id,
	})
	if err != nil {
		return Withdrawal{}, err
	}

	now := time.Now().UTC()
	record := Withdrawal{
		ID:            id,
		UserID:        input.UserID,
		Email:         input.Email,
		Amount:        input.Amount,
		ChargedAmount: charged,
		Currency:      w.Balance.Currency,
		Status:        StatusCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// Compensate the debit so the wallet is not short a withdrawal that
		// was never recorded.
		if _, cerr := s.engine.Credit(ctx, payments.AdjustInput{
			UserID:       input.UserID,
			Email:        input.Email,
			Amount:       charged,
			Title:        "Withdrawal request reversed",
			Kind:         ledger.KindWithdrawalRefund,
			WithdrawalID: id,
		}); cerr != nil {
			s.logger.Error("compensate failed withdrawal create",
				"withdrawal_id", id, "user_id", input.UserID, "amount", charged, "error", cerr)
		}
		return Withdrawal{}, err
	}

	return record, nil
}

// Find returns a withdrawal by id.
func (s *Service) Find(ctx context.Context, id string) (Withdrawal, error) {
	return s.repo.Find(ctx, id)
}
