package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists withdrawal records. Status changes go through
// Transition only, so concurrent actors can never claim the same record
// twice.
type Repository interface {
	Create(ctx context.Context, w Withdrawal) error
	Find(ctx context.Context, id string) (Withdrawal, error)
	// ListStale returns withdrawals in the given status created before the
	// cutoff.
	ListStale(ctx context.Context, status Status, before time.Time) ([]Withdrawal, error)
	// Transition atomically flips status from one value to another and
	// reports whether this call claimed the record. A false result with a
	// nil error means the record was not in the expected status.
	Transition(ctx context.Context, id string, from, to Status) (bool, error)
}

// PostgresRepository stores withdrawals in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const withdrawalColumns = `id, user_id, email, amount, charged_amount, currency, status, created_at, updated_at`

// Create inserts a withdrawal record.
func (r *PostgresRepository) Create(ctx context.Context, w Withdrawal) error {
	_, err := r.db.Exec(ctx, `INSERT INTO withdrawals (`+withdrawalColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.UserID, w.Email, w.Amount, w.ChargedAmount, w.Currency, w.Status,
		w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create withdrawal: %w", err)
	}
	return nil
}

// Find fetches a withdrawal by identifier.
func (r *PostgresRepository) Find(ctx context.Context, id string) (Withdrawal, error) {
	row := r.db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Withdrawal{}, ErrNotFound
		}
		return Withdrawal{}, err
	}
	return w, nil
}

// ListStale returns withdrawals still in status that are older than the cutoff.
func (r *PostgresRepository) ListStale(ctx context.Context, status Status, before time.Time) ([]Withdrawal, error) {
	rows, err := r.db.Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals
        WHERE status = $1 AND created_at < $2 ORDER BY created_at`, status, before.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Transition performs the atomic compare-and-set on status.
func (r *PostgresRepository) Transition(ctx context.Context, id string, from, to Status) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE withdrawals SET status = $3, updated_at = $4
        WHERE id = $1 AND status = $2`, id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("transition withdrawal %s: %w", id, err)
	}
	return cmd.RowsAffected() == 1, nil
}

func scanWithdrawal(row pgx.Row) (Withdrawal, error) {
	var w Withdrawal
	if err := row.Scan(&w.ID, &w.UserID, &w.Email, &w.Amount, &w.ChargedAmount,
		&w.Currency, &w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Withdrawal{}, err
	}
	return w, nil
}
