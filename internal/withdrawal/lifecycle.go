package withdrawal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/market-pay/market_pay/internal/ledger"
	"github.com/market-pay/market_pay/internal/notification"
	"github.com/market-pay/market_pay/internal/payments"
)

// Lifecycle drives withdrawal status transitions. Every handler claims the
// record with a single atomic compare-and-set before doing anything else, so
// invoking a handler repeatedly, out of order, or from concurrent sweeps is
// safe: only the call that claims the record performs the side effects.
type Lifecycle struct {
	repo     Repository
	engine   *payments.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewLifecycle constructs the withdrawal state machine.
func NewLifecycle(repo Repository, engine *payments.Service, notifier notification.Notifier, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{repo: repo, engine: engine, notifier: notifier, logger: logger}
}

// ProcessCreated handles stale withdrawals still in created. The move to
// inProgress is driven by the payout provider through Begin; the sweep only
// observes these for now.
func (l *Lifecycle) ProcessCreated(_ context.Context, w Withdrawal) error {
	if w.Status != StatusCreated {
		return nil
	}
	return nil
}

// ProcessInProgress handles stale withdrawals still in inProgress. The move
// to completed or failed is driven by the payout provider through Resolve.
func (l *Lifecycle) ProcessInProgress(_ context.Context, w Withdrawal) error {
	if w.Status != StatusInProgress {
		return nil
	}
	return nil
}

// ProcessFailed refunds a failed withdrawal: it claims the record with a
// failed -> refunded compare-and-set, credits the charged amount back with a
// WithdrawalRefund ledger entry, and notifies the user. If another actor
// already claimed the record this is a no-op.
func (l *Lifecycle) ProcessFailed(ctx context.Context, w Withdrawal) error {
	claimed, err := l.repo.Transition(ctx, w.ID, StatusFailed, StatusRefunded)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	if _, err := l.engine.Credit(ctx, payments.AdjustInput{
		UserID:       w.UserID,
		Email:        w.Email,
		Amount:       w.ChargedAmount,
		Title:        "Withdrawal failed. Amount refunded to wallet",
		Status:       ledger.StatusFulfilled,
		Kind:         ledger.KindWithdrawalRefund,
		WithdrawalID: w.ID,
	}); err != nil {
		// The status flip is already durable; surface loudly so the missing
		// credit can be reconciled by hand.
		l.logger.Error("refund credit failed after claiming withdrawal",
			"withdrawal_id", w.ID, "user_id", w.UserID, "amount", w.ChargedAmount, "error", err)
		return err
	}

	l.notify(ctx, w.UserID, notification.Payload{
		Title: "Withdrawal failed",
		Body:  fmt.Sprintf("Your withdrawal of %d %s failed. Amount has been refunded to your wallet", w.Amount, w.Currency),
		Data: map[string]any{
			"type":         notification.TypeWithdrawalFailed,
			"withdrawalId": w.ID,
			"amount":       w.Amount,
			"currency":     w.Currency,
		},
	})
	return nil
}

// ProcessCompleted notifies the user of a successful withdrawal. completed is
// terminal; there is no state change here.
func (l *Lifecycle) ProcessCompleted(ctx context.Context, w Withdrawal) error {
	if w.Status != StatusCompleted {
		return nil
	}
	l.notify(ctx, w.UserID, notification.Payload{
		Title: "Withdrawal successful",
		Body:  fmt.Sprintf("Your withdrawal of %d %s was successful!", w.Amount, w.Currency),
		Data: map[string]any{
			"type":         notification.TypeWithdrawalSuccessful,
			"withdrawalId": w.ID,
			"amount":       w.Amount,
			"currency":     w.Currency,
		},
	})
	return nil
}

// Begin is the provider-callback entry point for created -> inProgress.
func (l *Lifecycle) Begin(ctx context.Context, id string) (bool, error) {
	return l.repo.Transition(ctx, id, StatusCreated, StatusInProgress)
}

// Resolve is the provider-callback entry point for inProgress -> completed or
// failed. A successful resolve triggers the completion notification; a failed
// one leaves the record for the reconciliation sweep to refund.
func (l *Lifecycle) Resolve(ctx context.Context, id string, successful bool) (bool, error) {
	to := StatusFailed
	if successful {
		to = StatusCompleted
	}
	claimed, err := l.repo.Transition(ctx, id, StatusInProgress, to)
	if err != nil || !claimed {
		return claimed, err
	}
	if successful {
		w, err := l.repo.Find(ctx, id)
		if err != nil {
			l.logger.Warn("load withdrawal after completion", "withdrawal_id", id, "error", err)
			return true, nil
		}
		return true, l.ProcessCompleted(ctx, w)
	}
	return true, nil
}

func (l *Lifecycle) notify(ctx context.Context, userID string, payload notification.Payload) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Send(ctx, []string{userID}, payload); err != nil {
		l.logger.Error("send notification", "user_id", userID, "error", err)
	}
}
