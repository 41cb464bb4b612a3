package ledger

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory store.
func SeedBalance(s Store, userID string, amount int64) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		w := mem.getOrCreateLocked(userID)
		w.Balance.Amount = amount
		mem.wallets[userID] = w
	}
}

// SeedWallet is a test helper that installs a wallet as-is, e.g. to set up a
// wallet in a non-default currency.
func SeedWallet(s Store, w Wallet) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.wallets[w.UserID] = w
	}
}
