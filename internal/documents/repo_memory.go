package documents

import (
	"context"
	"sort"
	"sync"

	"collateral-backend/internal/approval"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Document)}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = clone(doc)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return clone(doc), nil
}

// List returns matching documents, oldest first.
func (r *MemoryRepo) List(ctx context.Context, filter Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0, len(r.data))
	for _, doc := range r.data {
		if filter.PropertyID != "" && (doc.PropertyID == nil || *doc.PropertyID != filter.PropertyID) {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		out = append(out, clone(doc))
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

func (r *MemoryRepo) Update(ctx context.Context, id string, patch Patch) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc = applyPatch(doc, patch)
	r.data[id] = doc
	return clone(doc), nil
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

func (r *MemoryRepo) DetachProperty(ctx context.Context, propertyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, doc := range r.data {
		if doc.PropertyID != nil && *doc.PropertyID == propertyID {
			doc.PropertyID = nil
			r.data[id] = doc
		}
	}
	return nil
}

func (r *MemoryRepo) StatusesByProperty(ctx context.Context, propertyID string) ([]approval.Status, error) {
	docs, err := r.List(ctx, Filter{PropertyID: propertyID})
	if err != nil {
		return nil, err
	}
	statuses := make([]approval.Status, 0, len(docs))
	for _, doc := range docs {
		statuses = append(statuses, doc.Status)
	}
	return statuses, nil
}

func clone(doc Document) Document {
	if doc.PropertyID != nil {
		p := *doc.PropertyID
		doc.PropertyID = &p
	}
	if doc.URL != nil {
		u := *doc.URL
		doc.URL = &u
	}
	return doc
}

var _ Repo = (*MemoryRepo)(nil)
