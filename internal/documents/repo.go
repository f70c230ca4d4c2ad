package documents

import (
	"context"
	"time"

	"collateral-backend/internal/approval"
)

// Filter narrows List results. Zero value lists everything.
type Filter struct {
	PropertyID string
	Status     approval.Status
}

// Patch holds the fields Update may change; nil fields are left as is.
type Patch struct {
	Type      *Type
	URL       *string
	ClearURL  bool
	Status    *approval.Status
	UpdatedAt time.Time
}

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	List(ctx context.Context, filter Filter) ([]Document, error)
	Update(ctx context.Context, id string, patch Patch) (Document, error)
	Delete(ctx context.Context, id string) error
	// DetachProperty nulls propertyId on every document of the property.
	DetachProperty(ctx context.Context, propertyID string) error
	StatusesByProperty(ctx context.Context, propertyID string) ([]approval.Status, error)
}

func applyPatch(doc Document, patch Patch) Document {
	if patch.Type != nil {
		doc.Type = *patch.Type
	}
	if patch.ClearURL {
		doc.URL = nil
	} else if patch.URL != nil {
		u := *patch.URL
		doc.URL = &u
	}
	if patch.Status != nil {
		doc.Status = *patch.Status
	}
	if !patch.UpdatedAt.IsZero() {
		doc.UpdatedAt = patch.UpdatedAt
	}
	return doc
}
