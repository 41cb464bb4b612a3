package withdrawal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/market-pay/market_pay/internal/ledger"
	"github.com/market-pay/market_pay/internal/logging"
	"github.com/market-pay/market_pay/internal/payments"
)

func TestRequestDebitsChargedAmountAndRecordsWithdrawal(t *testing.T) {
	store := ledger.NewMemory("USD")
	repo := NewMemoryRepository()
	engine := payments.NewService(store, nil, logging.Discard())
	svc := NewService(repo, engine, 5, logging.Discard())
	ctx := context.Background()

	ledger.SeedBalance(store, "alice", 100)

	w, err := svc.Request(ctx, RequestInput{UserID: "alice", Email: "alice@example.com", Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(50), w.Amount)
	assert.Equal(t, int64(55), w.ChargedAmount, "flat fee is added to the charged amount")
	assert.Equal(t, "USD", w.Currency)
	assert.Equal(t, StatusCreated, w.Status)

	wallet, _ := store.GetOrCreateWallet(ctx, "alice")
	assert.Equal(t, int64(45), wallet.Balance.Amount)

	entries, err := store.Query(ctx, ledger.Filter{UserID: "alice", Kind: ledger.KindWithdrawal})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-55), entries[0].Amount)
	assert.Equal(t, w.ID, entries[0].WithdrawalID)

	stored, err := repo.Find(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w, stored)
}

func TestRequestInsufficientBalanceWritesNothing(t *testing.T) {
	store := ledger.NewMemory("USD")
	repo := NewMemoryRepository()
	engine := payments.NewService(store, nil, logging.Discard())
	svc := NewService(repo, engine, 0, logging.Discard())
	ctx := context.Background()

	ledger.SeedBalance(store, "alice", 10)

	_, err := svc.Request(ctx, RequestInput{UserID: "alice", Email: "alice@example.com", Amount: 30})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	wallet, _ := store.GetOrCreateWallet(ctx, "alice")
	assert.Equal(t, int64(10), wallet.Balance.Amount)

	entries, err := store.Query(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type createFailRepository struct {
	Repository
}

func (r *createFailRepository) Create(context.Context, Withdrawal) error {
	return errors.New("store unavailable")
}

func TestRequestCompensatesDebitWhenCreateFails(t *testing.T) {
	store := ledger.NewMemory("USD")
	repo := &createFailRepository{Repository: NewMemoryRepository()}
	engine := payments.NewService(store, nil, logging.Discard())
	svc := NewService(repo, engine, 0, logging.Discard())
	ctx := context.Background()

	ledger.SeedBalance(store, "alice", 100)

	_, err := svc.Request(ctx, RequestInput{UserID: "alice", Email: "alice@example.com", Amount: 40})
	require.Error(t, err)

	wallet, _ := store.GetOrCreateWallet(ctx, "alice")
	assert.Equal(t, int64(100), wallet.Balance.Amount, "debit must be compensated")
}

func TestRequestRejectsNonPositiveAmount(t *testing.T) {
	store := ledger.NewMemory("USD")
	repo := NewMemoryRepository()
	engine := payments.NewService(store, nil, logging.Discard())
	svc := NewService(repo, engine, 0, logging.Discard())

	_, err := svc.Request(context.Background(), RequestInput{UserID: "alice", Amount: 0})
	require.Error(t, err)
}
