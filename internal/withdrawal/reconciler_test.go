package withdrawal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/market-pay/market_pay/internal/logging"
)

func newReconciler(f fixture, staleAfter time.Duration) *Reconciler {
	return NewReconciler(f.repo, f.lifecycle, time.Minute, staleAfter, logging.Discard())
}

func TestSweepRefundsStaleFailedWithdrawals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	w := seedWithdrawal(t, f.repo, StatusFailed, time.Hour)

	newReconciler(f, 30*time.Minute).Sweep(ctx)

	stored, err := f.repo.Find(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, stored.Status)

	wallet, _ := f.store.GetOrCreateWallet(ctx, "alice")
	assert.Equal(t, int64(55), wallet.Balance.Amount)
	assert.Equal(t, 1, f.notifier.calls)
}

func TestSweepIgnoresFreshWithdrawals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	w := seedWithdrawal(t, f.repo, StatusFailed, time.Minute)

	newReconciler(f, 30*time.Minute).Sweep(ctx)

	stored, err := f.repo.Find(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status, "records younger than the threshold are left alone")
	assert.Zero(t, f.notifier.calls)
}

func TestSweepLeavesCreatedAndInProgressUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := seedWithdrawal(t, f.repo, StatusCreated, time.Hour)

	inProgress := created
	inProgress.ID = "wd-2"
	inProgress.Status = StatusInProgress
	require.NoError(t, f.repo.Create(ctx, inProgress))

	newReconciler(f, 30*time.Minute).Sweep(ctx)

	got, err := f.repo.Find(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, got.Status)

	got, err = f.repo.Find(ctx, inProgress.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
}

// flakyRepository fails Transition for one withdrawal id to simulate a
// transient store error on a single record.
type flakyRepository struct {
	Repository
	failID string
}

func (r *flakyRepository) Transition(ctx context.Context, id string, from, to Status) (bool, error) {
	if id == r.failID {
		return false, errors.New("store unavailable")
	}
	return r.Repository.Transition(ctx, id, from, to)
}

func TestSweepIsolatesPerRecordFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	bad := seedWithdrawal(t, f.repo, StatusFailed, time.Hour)
	good := bad
	good.ID = "wd-good"
	good.UserID = "bob"
	require.NoError(t, f.repo.Create(ctx, good))

	flaky := &flakyRepository{Repository: f.repo, failID: bad.ID}
	lifecycle := NewLifecycle(flaky, f.lifecycle.engine, f.notifier, logging.Discard())
	NewReconciler(flaky, lifecycle, time.Minute, 30*time.Minute, logging.Discard()).Sweep(ctx)

	// The healthy record was refunded despite its sibling failing.
	stored, err := f.repo.Find(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, stored.Status)

	wallet, _ := f.store.GetOrCreateWallet(ctx, "bob")
	assert.Equal(t, int64(55), wallet.Balance.Amount)

	// The failing record is untouched and will be retried next sweep.
	stored, err = f.repo.Find(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	f := newFixture()
	w := seedWithdrawal(t, f.repo, StatusFailed, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReconciler(f.repo, f.lifecycle, 10*time.Millisecond, 30*time.Minute, logging.Discard())
	go r.Run(ctx)

	require.Eventually(t, func() bool {
		stored, err := f.repo.Find(context.Background(), w.ID)
		return err == nil && stored.Status == StatusRefunded
	}, 2*time.Second, 10*time.Millisecond)
}
