package withdrawal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/market-pay/market_pay/internal/ledger"
	"github.com/market-pay/market_pay/internal/logging"
	"github.com/market-pay/market_pay/internal/notification"
	"github.com/market-pay/market_pay/internal/payments"
)

type testNotifier struct {
	mu       sync.Mutex
	calls    int
	userIDs  []string
	payloads []notification.Payload
}

func (n *testNotifier) Send(_ context.Context, userIDs []string, payload notification.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.userIDs = append(n.userIDs, userIDs...)
	n.payloads = append(n.payloads, payload)
	return nil
}

type fixture struct {
	store     *ledger.MemoryStore
	repo      Repository
	notifier  *testNotifier
	lifecycle *Lifecycle
}

func newFixture() fixture {
	store := ledger.NewMemory("USD")
	repo := NewMemoryRepository()
	notifier := &testNotifier{}
	engine := payments.NewService(store, nil, logging.Discard())
	return fixture{
		store:     store,
		repo:      repo,
		notifier:  notifier,
		lifecycle: NewLifecycle(repo, engine, notifier, logging.Discard()),
	}
}

func seedWithdrawal(t *testing.T, repo Repository, status Status, age time.Duration) Withdrawal {
	t.Helper()
	created := time.Now().UTC().Add(-age)
	w := Withdrawal{
		ID:            "wd-" + string(status),
		UserID:        "alice",
		Email:         "alice@example.com",
		Amount:        50,
		ChargedAmount: 55,
		Currency:      "USD",
		Status:        status,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, repo.Create(context.Background(), w))
	return w
}

func TestProcessFailedRefundsOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	w := seedWithdrawal(t, f.repo, StatusFailed, time.Hour)

	require.NoError(t, f.lifecycle.ProcessFailed(ctx, w))

	// Status flipped to the terminal refunded state.
	stored, err := f.repo.Find(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, stored.Status)

	// Charged amount credited back with one WithdrawalRefund entry.
	wallet, err := f.store.GetOrCreateWallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(55), wallet.Balance.Amount)

	refunds, err := f.store.Query(ctx, ledger.Filter{UserID: "alice", Kind: ledger.KindWithdrawalRefund})
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(55), refunds[0].Amount)
	assert.Equal(t, "USD", refunds[0].Currency)
	assert.Equal(t, w.ID, refunds[0].WithdrawalID)
	assert.Equal(t, ledger.StatusFulfilled, refunds[0].Status)

	// Exactly one notification.
	require.Equal(t, 1, f.notifier.calls)
	assert.Equal(t, []string{"alice"}, f.notifier.userIDs)
	assert.Equal(t, notification.TypeWithdrawalFailed, f.notifier.payloads[0].Data["type"])

	// Re-running the handler is a no-op.
	require.NoError(t, f.lifecycle.ProcessFailed(ctx, w))
	wallet, _ = f.store.GetOrCreateWallet(ctx, "alice")
	assert.Equal(t, int64(55), wallet.Balance.Amount)
	assert.Equal(t, 1, f.notifier.calls)
}

func TestProcessFailedGuardIsSilentNoOp(t *testing.T) {
	for _, status := range []Status{StatusCreated, StatusInProgress, StatusCompleted, StatusRefunded} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			w := seedWithdrawal(t, f.repo, status, time.Hour)

			require.NoError(t, f.lifecycle.ProcessFailed(ctx, w))

			stored, err := f.repo.Find(ctx, w.ID)
			require.NoError(t, err)
			assert.Equal(t, status, stored.Status, "status must not change")

			wallet, _ := f.store.GetOrCreateWallet(ctx, "alice")
			assert.Zero(t, wallet.Balance.Amount, "no refund may be posted")

			entries, err := f.store.Query(ctx, ledger.Filter{})
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.Zero(t, f.notifier.calls)
		})
	}
}

func TestProcessFailedConcurrentSweepsRefundExactlyOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	w := seedWithdrawal(t, f.repo, StatusFailed, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.lifecycle.ProcessFailed(ctx, w))
		}()
	}
	wg.Wait()

	wallet, err := f.store.GetOrCreateWallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(55), wallet.Balance.Amount, "exactly one refund must land")

	refunds, err := f.store.Query(ctx, ledger.Filter{Kind: ledger.KindWithdrawalRefund})
	require.NoError(t, err)
	assert.Len(t, refunds, 1)
	assert.Equal(t, 1, f.notifier.calls)
}

func TestProcessCompletedNotifiesWithoutStateChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	w := seedWithdrawal(t, f.repo, StatusCompleted, time.Hour)

	require.NoError(t, f.lifecycle.ProcessCompleted(ctx, w))

	stored, err := f.repo.Find(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	require.Equal(t, 1, f.notifier.calls)
	assert.Equal(t, notification.TypeWithdrawalSuccessful, f.notifier.payloads[0].Data["type"])

	wallet, _ := f.store.GetOrCreateWallet(ctx, "alice")
	assert.Zero(t, wallet.Balance.Amount)
}

func TestProcessCompletedGuard(t *testing.T) {
	f := newFixture()
	w := seedWithdrawal(t, f.repo, StatusFailed, time.Hour)

	require.NoError(t, f.lifecycle.ProcessCompleted(context.Background(), w))
	assert.Zero(t, f.notifier.calls)
}

func TestCreatedAndInProgressHandlersAreNoOps(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created := seedWithdrawal(t, f.repo, StatusCreated, time.Hour)
	require.NoError(t, f.lifecycle.ProcessCreated(ctx, created))

	stored, err := f.repo.Find(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, stored.Status)
	assert.Zero(t, f.notifier.calls)
}

func TestBeginAndResolveDriveProviderTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	w := seedWithdrawal(t, f.repo, StatusCreated, time.Minute)

	claimed, err := f.lifecycle.Begin(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second Begin finds the record already claimed.
	claimed, err = f.lifecycle.Begin(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = f.lifecycle.Resolve(ctx, w.ID, true)
	require.NoError(t, err)
	assert.True(t, claimed)

	stored, err := f.repo.Find(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 1, f.notifier.calls)

	// Terminal: resolving again changes nothing.
	claimed, err = f.lifecycle.Resolve(ctx, w.ID, false)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestResolveFailureLeavesRefundToSweep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	w := seedWithdrawal(t, f.repo, StatusInProgress, time.Minute)

	claimed, err := f.lifecycle.Resolve(ctx, w.ID, false)
	require.NoError(t, err)
	assert.True(t, claimed)

	stored, err := f.repo.Find(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)

	wallet, _ := f.store.GetOrCreateWallet(ctx, "alice")
	assert.Zero(t, wallet.Balance.Amount, "refund happens in the sweep, not at resolve time")
	assert.Zero(t, f.notifier.calls)
}
