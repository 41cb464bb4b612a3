package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/market-pay/market_pay/internal/ledger"
	"github.com/market-pay/market_pay/internal/logging"
	"github.com/market-pay/market_pay/internal/notification"
)

type testNotifier struct {
	calls    int
	userIDs  []string
	payloads []notification.Payload
}

func (n *testNotifier) Send(_ context.Context, userIDs []string, payload notification.Payload) error {
	n.calls++
	n.userIDs = append(n.userIDs, userIDs...)
	n.payloads = append(n.payloads, payload)
	return nil
}

func TestTransferSuccess(t *testing.T) {
	store := ledger.NewMemory("USD")
	notifier := &testNotifier{}
	svc := NewService(store, notifier, logging.Discard())
	ctx := context.Background()

	ledger.SeedBalance(store, "alice", 100)

	err := svc.Transfer(ctx, TransferInput{FromUserID: "alice", ToUserID: "bob", Amount: 30, Note: "gift"})
	require.NoError(t, err)

	from, _ := store.GetOrCreateWallet(ctx, "alice")
	to, _ := store.GetOrCreateWallet(ctx, "bob")
	assert.Equal(t, int64(70), from.Balance.Amount)
	assert.Equal(t, int64(30), to.Balance.Amount)

	entries, err := store.Query(ctx, ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, 1, notifier.calls)
	assert.Equal(t, []string{"bob"}, notifier.userIDs)
	assert.Equal(t, notification.TypeTransferReceived, notifier.payloads[0].Data["type"])
}

func TestTransferInsufficientBalance(t *testing.T) {
	store := ledger.NewMemory("USD")
	notifier := &testNotifier{}
	svc := NewService(store, notifier, logging.Discard())
	ctx := context.Background()

	ledger.SeedBalance(store, "alice", 10)

	err := svc.Transfer(ctx, TransferInput{FromUserID: "alice", ToUserID: "bob", Amount: 30})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	from, _ := store.GetOrCreateWallet(ctx, "alice")
	to, _ := store.GetOrCreateWallet(ctx, "bob")
	assert.Equal(t, int64(10), from.Balance.Amount)
	assert.Equal(t, int64(0), to.Balance.Amount)

	entries, err := store.Query(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, notifier.calls)
}

func TestTransferRejectsSameWallet(t *testing.T) {
	store := ledger.NewMemory("USD")
	svc := NewService(store, nil, logging.Discard())

	err := svc.Transfer(context.Background(), TransferInput{FromUserID: "alice", ToUserID: "alice", Amount: 10})
	require.ErrorIs(t, err, ErrSameWallet)
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	store := ledger.NewMemory("USD")
	svc := NewService(store, nil, logging.Discard())

	err := svc.Transfer(context.Background(), TransferInput{FromUserID: "alice", ToUserID: "bob", Amount: 0})
	require.Error(t, err)

	err = svc.Transfer(context.Background(), TransferInput{FromUserID: "alice", ToUserID: "bob", Amount: -5})
	require.Error(t, err)
}

func TestCreditAndDebit(t *testing.T) {
	store := ledger.NewMemory("USD")
	svc := NewService(store, nil, logging.Discard())
	ctx := context.Background()

	w, err := svc.Credit(ctx, AdjustInput{UserID: "alice", Amount: 200, Title: "payout"})
	require.NoError(t, err)
	assert.Equal(t, int64(200), w.Balance.Amount)

	w, err = svc.Debit(ctx, AdjustInput{UserID: "alice", Amount: 50, Title: "charge"})
	require.NoError(t, err)
	assert.Equal(t, int64(150), w.Balance.Amount)

	_, err = svc.Debit(ctx, AdjustInput{UserID: "alice", Amount: 151, Title: "too much"})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	entries, err := store.Query(ctx, ledger.Filter{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "failed debit must not append an entry")
}
