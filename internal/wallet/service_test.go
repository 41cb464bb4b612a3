package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/market-pay/market_pay/internal/ledger"
)

func TestGetOrCreateReturnsZeroBalanceWallet(t *testing.T) {
	store := ledger.NewMemory("USD")
	svc := NewService(store)

	w, err := svc.GetOrCreate(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", w.UserID)
	assert.Equal(t, int64(0), w.Balance.Amount)
	assert.Equal(t, "USD", w.Balance.Currency)
}

func TestHistoryIsNewestFirst(t *testing.T) {
	store := ledger.NewMemory("USD")
	svc := NewService(store)
	ctx := context.Background()

	_, err := store.ApplyDelta(ctx, "alice", 100, ledger.Entry{Title: "first"})
	require.NoError(t, err)
	_, err = store.ApplyDelta(ctx, "alice", -20, ledger.Entry{Title: "second"})
	require.NoError(t, err)

	history, err := svc.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Title)
	assert.Equal(t, "first", history[1].Title)
}
