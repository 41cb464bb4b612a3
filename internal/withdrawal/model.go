package withdrawal

import (
	"errors"
	"time"
)

// ErrNotFound indicates the withdrawal does not exist.
var ErrNotFound = errors.New("withdrawal not found")

// Status tracks a withdrawal through its lifecycle:
// created -> inProgress -> {completed, failed}; failed -> refunded.
// completed and refunded are terminal.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// Withdrawal is a request to move funds out of a wallet to an external
// payout rail. ChargedAmount is what was actually debited, including fees.
type Withdrawal struct {
	ID            string
	UserID        string
	Email         string
	Amount        int64
	ChargedAmount int64
	Currency      string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
