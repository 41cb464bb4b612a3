package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientBalance occurs when a debit or transfer would push a
	// wallet balance below zero. The whole atomic scope aborts; nothing is
	// written.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCurrencyMismatch occurs when a transfer spans wallets held in
	// different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// TransactionStatus marks how far a monetary event has progressed.
type TransactionStatus string

const (
	// StatusSettled means the event is final from the user's point of view.
	StatusSettled TransactionStatus = "settled"
	// StatusFulfilled marks events produced by a completed obligation, such
	// as a withdrawal refund.
	StatusFulfilled TransactionStatus = "fulfilled"
)

// TransactionKind tags the business meaning of a ledger entry.
type TransactionKind string

const (
	KindSent             TransactionKind = "Sent"
	KindReceived         TransactionKind = "Received"
	KindWithdrawal       TransactionKind = "Withdrawal"
	KindWithdrawalRefund TransactionKind = "WithdrawalRefund"
)

const (
	titleSent     = "You sent money"
	titleReceived = "You received money"
)

// Balance is a minor-unit amount in a single currency.
type Balance struct {
	Amount   int64
	Currency string
}

// Wallet is the per-user balance record. It is created lazily on first
// access and mutated only through the store's atomic operations.
type Wallet struct {
	UserID    string
	Balance   Balance
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is the insert model for a ledger transaction. Amount is signed:
// negative for debits, positive for credits.
type Entry struct {
	UserID         string
	Email          string
	Title          string
	Amount         int64
	Currency       string
	Status         TransactionStatus
	Kind           TransactionKind
	Note           string
	CounterpartyID string
	WithdrawalID   string
}

// Transaction is an immutable, persisted ledger entry.
type Transaction struct {
	ID string
	Entry
	CreatedAt time.Time
}

// TransferData captures an atomic wallet-to-wallet move. Amount is a
// positive quantity; the store applies the sign convention internally.
type TransferData struct {
	From      string
	To        string
	FromEmail string
	ToEmail   string
	Amount    int64
	Note      string
}

// Filter narrows a ledger query.
type Filter struct {
	UserID       string
	Kind         TransactionKind
	WithdrawalID string
	Limit        int
}

// Store owns wallet balances and the append-only transaction ledger. Every
// mutating operation is all-or-nothing: a failed precondition inside the
// scope leaves balances and the ledger untouched.
type Store interface {
	// GetOrCreateWallet upserts the wallet for userID with a zero balance.
	// Concurrent first accesses converge on exactly one row.
	GetOrCreateWallet(ctx context.Context, userID string) (Wallet, error)

	// ApplyDelta adds delta to the wallet balance and appends one ledger
	// entry in the same atomic scope. Returns ErrInsufficientBalance, with
	// nothing written, if the result would be negative.
	ApplyDelta(ctx context.Context, userID string, delta int64, entry Entry) (Wallet, error)

	// Transfer moves Amount from one wallet to the other and appends the
	// Sent/Received entry pair, all in one atomic scope spanning both
	// wallets.
	Transfer(ctx context.Context, data TransferData) error

	// Append inserts a single ledger entry with no balance change.
	Append(ctx context.Context, entry Entry) (Transaction, error)

	// Query returns ledger entries matching the filter, newest first.
	Query(ctx context.Context, filter Filter) ([]Transaction, error)
}
