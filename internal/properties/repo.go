package properties

import (
	"context"
	"time"

	"collateral-backend/internal/approval"
	"collateral-backend/internal/shared/geo"
)

// Filter narrows List results. Zero-valued fields are ignored.
type Filter struct {
	ClientID        string
	ClientIDs       []string
	AddressContains string
	MinValue        *float64
	MaxValue        *float64
	HasLocation     bool
	Status          approval.Status
}

// Patch holds the fields Update may change; nil fields are left as is.
type Patch struct {
	ClientID      *string
	ClearClient   bool
	Address       *string
	MarketValue   *float64
	Location      *geo.Point
	ClearLocation bool
	PhotoURL      *string
	ClearPhoto    bool
	UpdatedAt     time.Time
}

// Repo defines persistence operations for properties.
type Repo interface {
	Create(ctx context.Context, p Property) error
	GetByID(ctx context.Context, id string) (Property, error)
	List(ctx context.Context, filter Filter) ([]Property, error)
	Update(ctx context.Context, id string, patch Patch) (Property, error)
	Delete(ctx context.Context, id string) error
	GetStatus(ctx context.Context, id string) (approval.Status, error)
	UpdateStatus(ctx context.Context, id string, status approval.Status) error
	// DetachClient nulls clientId on every property of the client.
	DetachClient(ctx context.Context, clientID string) error
}

func applyPatch(p Property, patch Patch) Property {
	if patch.ClearClient {
		p.ClientID = nil
	} else if patch.ClientID != nil {
		id := *patch.ClientID
		p.ClientID = &id
	}
	if patch.Address != nil {
		p.Address = *patch.Address
	}
	if patch.MarketValue != nil {
		p.MarketValue = *patch.MarketValue
	}
	if patch.ClearLocation {
		p.Location = nil
	} else if patch.Location != nil {
		loc := *patch.Location
		p.Location = &loc
	}
	if patch.ClearPhoto {
		p.PhotoURL = nil
	} else if patch.PhotoURL != nil {
		u := *patch.PhotoURL
		p.PhotoURL = &u
	}
	if !patch.UpdatedAt.IsZero() {
		p.UpdatedAt = patch.UpdatedAt
	}
	return p
}

func (f Filter) matches(p Property) bool {
	if f.ClientID != "" && (p.ClientID == nil || *p.ClientID != f.ClientID) {
		return false
	}
	if f.ClientIDs != nil {
		if p.ClientID == nil {
			return false
		}
		found := false
		for _, id := range f.ClientIDs {
			if id == *p.ClientID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinValue != nil && p.MarketValue < *f.MinValue {
		return false
	}
	if f.MaxValue != nil && p.MarketValue > *f.MaxValue {
		return false
	}
	if f.HasLocation && p.Location == nil {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}
