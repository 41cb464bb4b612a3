package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists wallets and ledger entries in PostgreSQL. The
// atomic operations run inside a single transaction; the wallet upsert takes
// a row lock, so concurrent read-modify-writes of the same wallet serialize.
type PostgresStore struct {
	db       *pgxpool.Pool
	currency string
}

// NewPostgresStore constructs a Postgres-backed ledger store. New wallets are
// created in defaultCurrency.
func NewPostgresStore(db *pgxpool.Pool, defaultCurrency string) *PostgresStore {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &PostgresStore{db: db, currency: defaultCurrency}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// GetOrCreateWallet upserts the wallet row for userID.
func (s *PostgresStore) GetOrCreateWallet(ctx context.Context, userID string) (Wallet, error) {
	return s.upsertWallet(ctx, s.db, userID)
}

// upsertWallet inserts the wallet if missing and returns the current row.
// The no-op DO UPDATE makes RETURNING yield the row either way, and inside a
// transaction it locks the row until commit.
func (s *PostgresStore) upsertWallet(ctx context.Context, q querier, userID string) (Wallet, error) {
	now := time.Now().UTC()
	row := q.QueryRow(ctx, `
        INSERT INTO wallets (user_id, amount, currency, created_at, updated_at)
        VALUES ($1, 0, $2, $3, $3)
        ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
        RETURNING user_id, amount, currency, created_at, updated_at`,
		userID, s.currency, now)

	var w Wallet
	if err := row.Scan(&w.UserID, &w.Balance.Amount, &w.Balance.Currency, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Wallet{}, fmt.Errorf("upsert wallet %s: %w", userID, err)
	}
	return w, nil
}

// ApplyDelta adjusts one wallet and appends the matching ledger entry in a
// single transaction.
func (s *PostgresStore) ApplyDelta(ctx context.Context, userID string, delta int64, entry Entry) (Wallet, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := s.upsertWallet(ctx, tx, userID)
	if err != nil {
		return Wallet{}, err
	}
	if w.Balance.Amount+delta < 0 {
		return Wallet{}, ErrInsufficientBalance
	}

	if err := s.addToBalance(ctx, tx, userID, delta); err != nil {
		return Wallet{}, err
	}

	entry.UserID = userID
	entry.Amount = delta
	if entry.Currency == "" {
		entry.Currency = w.Balance.Currency
	}
	if _, err := insertEntry(ctx, tx, entry); err != nil {
		return Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, err
	}

	w.Balance.Amount += delta
	return w, nil
}

// Transfer moves funds between two wallets and records the Sent/Received
// pair atomically.
func (s *PostgresStore) Transfer(ctx context.Context, data TransferData) error {
	if data.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock the two wallet rows in a stable order so opposing transfers
	// cannot deadlock.
	first, second := data.From, data.To
	if second < first {
		first, second = second, first
	}
	wallets := map[string]Wallet{}
	for _, id := range []string{first, second} {
		w, err := s.upsertWallet(ctx, tx, id)
		if err != nil {
			return err
		}
		wallets[id] = w
	}

	from, to := wallets[data.From], wallets[data.To]
	if from.Balance.Currency != to.Balance.Currency {
		return ErrCurrencyMismatch
	}
	if from.Balance.Amount-data.Amount < 0 {
		return ErrInsufficientBalance
	}

	if err := s.addToBalance(ctx, tx, data.From, -data.Amount); err != nil {
		return err
	}
	if err := s.addToBalance(ctx, tx, data.To, data.Amount); err != nil {
		return err
	}

	currency := from.Balance.Currency
	pair := []Entry{
		{
			UserID:         data.From,
			Email:          data.FromEmail,
			Title:          titleSent,
			Amount:         -data.Amount,
			Currency:       currency,
			Status:         StatusSettled,
			Kind:           KindSent,
			Note:           data.Note,
			CounterpartyID: data.To,
		},
		{
			UserID:         data.To,
			Email:          data.ToEmail,
			Title:          titleReceived,
			Amount:         data.Amount,
			Currency:       currency,
			Status:         StatusSettled,
			Kind:           KindReceived,
			Note:           data.Note,
			CounterpartyID: data.From,
		},
	}
	for _, entry := range pair {
		if _, err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Append inserts a single ledger entry outside of any balance change.
func (s *PostgresStore) Append(ctx context.Context, entry Entry) (Transaction, error) {
	return insertEntry(ctx, s.db, entry)
}

// Query returns matching ledger entries, newest first.
func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]Transaction, error) {
	query := `SELECT id, user_id, email, title, amount, currency, status, kind, note, counterparty_id, withdrawal_id, created_at
        FROM transactions WHERE 1=1`
	args := []any{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.WithdrawalID != "" {
		args = append(args, filter.WithdrawalID)
		query += fmt.Sprintf(" AND withdrawal_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Email, &t.Title, &t.Amount, &t.Currency,
			&t.Status, &t.Kind, &t.Note, &t.CounterpartyID, &t.WithdrawalID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) addToBalance(ctx context.Context, tx pgx.Tx, userID string, delta int64) error {
	cmd, err := tx.Exec(ctx, `UPDATE wallets SET amount = amount + $2, updated_at = $3 WHERE user_id = $1`,
		userID, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update balance %s: %w", userID, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s not found", userID)
	}
	return nil
}

func insertEntry(ctx context.Context, q querier, entry Entry) (Transaction, error) {
	if entry.Status == "" {
		entry.Status = StatusSettled
	}
	t := Transaction{ID: uuid.New().String(), Entry: entry, CreatedAt: time.Now().UTC()}
	_, err := q.Exec(ctx, `
        INSERT INTO transactions (id, user_id, email, title, amount, currency, status, kind, note, counterparty_id, withdrawal_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.UserID, t.Email, t.Title, t.Amount, t.Currency, t.Status, t.Kind,
		t.Note, t.CounterpartyID, t.WithdrawalID, t.CreatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	return t, nil
}
