package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a concurrency-safe in-memory ledger store. The mutex stands
// in for the database transaction: every operation holds it for the full
// read-modify-write, so the same all-or-nothing semantics apply.
type MemoryStore struct {
	mu       sync.Mutex
	currency string
	wallets  map[string]Wallet
	entries  []Transaction
	seq      int
}

// NewMemory creates an in-memory store, mainly for unit tests.
func NewMemory(defaultCurrency string) *MemoryStore {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &MemoryStore{currency: defaultCurrency, wallets: make(map[string]Wallet)}
}

func (s *MemoryStore) GetOrCreateWallet(_ context.Context, userID string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(userID), nil
}

func (s *MemoryStore) ApplyDelta(_ context.Context, userID string, delta int64, entry Entry) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.getOrCreateLocked(userID)
	if w.Balance.Amount+delta < 0 {
		return Wallet{}, ErrInsufficientBalance
	}

	w.Balance.Amount += delta
	w.UpdatedAt = time.Now().UTC()
	s.wallets[userID] = w

	entry.UserID = userID
	entry.Amount = delta
	if entry.Currency == "" {
		entry.Currency = w.Balance.Currency
	}
	s.appendLocked(entry)
	return w, nil
}

func (s *MemoryStore) Transfer(_ context.Context, data TransferData) error {
	if data.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.getOrCreateLocked(data.From)
	to := s.getOrCreateLocked(data.To)

	// All preconditions checked before any mutation, so a failure leaves the
	// store untouched.
	if from.Balance.Currency != to.Balance.Currency {
		return ErrCurrencyMismatch
	}
	if from.Balance.Amount-data.Amount < 0 {
		return ErrInsufficientBalance
	}

	now := time.Now().UTC()
	from.Balance.Amount -= data.Amount
	from.UpdatedAt = now
	to.Balance.Amount += data.Amount
	to.UpdatedAt = now
	s.wallets[data.From] = from
	s.wallets[data.To] = to

	currency := from.Balance.Currency
	s.appendLocked(Entry{
		UserID:         data.From,
		Email:          data.FromEmail,
		Title:          titleSent,
		Amount:         -data.Amount,
		Currency:       currency,
		Status:         StatusSettled,
		Kind:           KindSent,
		Note:           data.Note,
		CounterpartyID: data.To,
	})
	s.appendLocked(Entry{
		UserID:         data.To,
		Email:          data.ToEmail,
		Title:          titleReceived,
		Amount:         data.Amount,
		Currency:       currency,
		Status:         StatusSettled,
		Kind:           KindReceived,
		Note:           data.Note,
		CounterpartyID: data.From,
	})
	return nil
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(entry), nil
}

func (s *MemoryStore) Query(_ context.Context, filter Filter) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Transaction
	for i := len(s.entries) - 1; i >= 0; i-- {
		t := s.entries[i]
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		if filter.WithdrawalID != "" && t.WithdrawalID != filter.WithdrawalID {
			continue
		}
		out = append(out, t)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) getOrCreateLocked(userID string) Wallet {
	if w, ok := s.wallets[userID]; ok {
		return w
	}
	now := time.Now().UTC()
	w := Wallet{
		UserID:    userID,
		Balance:   Balance{Amount: 0, Currency: s.currency},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wallets[userID] = w
	return w
}

func (s *MemoryStore) appendLocked(entry Entry) Transaction {
	if entry.Status == "" {
		entry.Status = StatusSettled
	}
	s.seq++
	t := Transaction{
		ID:        fmt.Sprintf("txn-%d", s.seq),
		Entry:     entry,
		CreatedAt: time.Now().UTC(),
	}
	s.entries = append(s.entries, t)
	return t
}
