package withdrawal

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.Mutex
	records map[string]Withdrawal
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[string]Withdrawal)}
}

func (r *memoryRepository) Create(_ context.Context, w Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[w.ID]; exists {
		return errors.New("withdrawal exists")
	}
	r.records[w.ID] = w
	return nil
}

func (r *memoryRepository) Find(_ context.Context, id string) (Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.records[id]
	if !ok {
		return Withdrawal{}, ErrNotFound
	}
	return w, nil
}

func (r *memoryRepository) ListStale(_ context.Context, status Status, before time.Time) ([]Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Withdrawal
	for _, w := range r.records {
		if w.Status == status && w.CreatedAt.Before(before) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) Transition(_ context.Context, id string, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.records[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	w.UpdatedAt = time.Now().UTC()
	r.records[id] = w
	return true, nil
}
