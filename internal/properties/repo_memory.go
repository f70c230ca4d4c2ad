package properties

import (
	"context"
	"sort"
	"strings"
	"sync"

	"collateral-backend/internal/approval"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Property
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Property)}
}

func (r *MemoryRepo) Create(ctx context.Context, p Property) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.ID] = clone(p)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Property, error) {
	if err := ctx.Err(); err != nil {
		return Property{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[id]
	if !ok {
		return Property{}, ErrNotFound
	}
	return clone(p), nil
}

func (r *MemoryRepo) List(ctx context.Context, filter Filter) ([]Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(filter.AddressContains))
	r.mu.RLock()
	out := make([]Property, 0, len(r.data))
	for _, p := range r.data {
		if !filter.matches(p) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Address), needle) {
			continue
		}
		out = append(out, clone(p))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, patch Patch) (Property, error) {
	if err := ctx.Err(); err != nil {
		return Property{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return Property{}, ErrNotFound
	}
	p = applyPatch(p, patch)
	r.data[id] = p
	return clone(p), nil
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

func (r *MemoryRepo) GetStatus(ctx context.Context, id string) (approval.Status, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Status, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, status approval.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	r.data[id] = p
	return nil
}

func (r *MemoryRepo) DetachClient(ctx context.Context, clientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.data {
		if p.ClientID != nil && *p.ClientID == clientID {
			p.ClientID = nil
			r.data[id] = p
		}
	}
	return nil
}

func clone(p Property) Property {
	if p.ClientID != nil {
		id := *p.ClientID
		p.ClientID = &id
	}
	if p.Location != nil {
		loc := *p.Location
		p.Location = &loc
	}
	if p.PhotoURL != nil {
		u := *p.PhotoURL
		p.PhotoURL = &u
	}
	return p
}

var _ Repo = (*MemoryRepo)(nil)
