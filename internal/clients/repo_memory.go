package clients

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Client
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Client)}
}

func (r *MemoryRepo) Create(ctx context.Context, c Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taxIDTakenLocked(c.TaxID, c.ID) {
		return ErrTaxIDTaken
	}
	r.data[c.ID] = c
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Client, error) {
	if err := ctx.Err(); err != nil {
		return Client{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.data[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) GetByTaxID(ctx context.Context, taxID string) (Client, error) {
	if err := ctx.Err(); err != nil {
		return Client{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.data {
		if strings.EqualFold(c.TaxID, taxID) {
			return c, nil
		}
	}
	return Client{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, filter Filter) ([]Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(filter.Name))
	r.mu.RLock()
	out := make([]Client, 0, len(r.data))
	for _, c := range r.data {
		if needle != "" && !strings.Contains(strings.ToLower(c.DisplayName()), needle) {
			continue
		}
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, c Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[c.ID]; !ok {
		return ErrNotFound
	}
	if r.taxIDTakenLocked(c.TaxID, c.ID) {
		return ErrTaxIDTaken
	}
	r.data[c.ID] = c
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryRepo) taxIDTakenLocked(taxID, exceptID string) bool {
	for id, existing := range r.data {
		if id != exceptID && strings.EqualFold(existing.TaxID, taxID) {
			return true
		}
	}
	return false
}

var _ Repo = (*MemoryRepo)(nil)
