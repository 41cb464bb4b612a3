package wallet

import (
	"context"

	"github.com/market-pay/market_pay/internal/ledger"
)

// Service exposes the wallet read surface over the ledger store. Balances are
// only ever mutated through the transfer engine; this service covers
// get-or-create access and transaction history.
type Service struct {
	store ledger.Store
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// GetOrCreate returns the user's wallet, creating it with a zero balance on
// first access.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (ledger.Wallet, error) {
	return s.store.GetOrCreateWallet(ctx, userID)
}

// History returns the user's ledger entries, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]ledger.Transaction, error) {
	return s.store.Query(ctx, ledger.Filter{UserID: userID, Limit: limit})
}
