package clients

import "context"

// Filter narrows List results.
type Filter struct {
	// Name matches first name, surnames or legal name, case-insensitively.
	Name string
}

// Repo defines persistence operations for clients.
type Repo interface {
	Create(ctx context.Context, c Client) error
	GetByID(ctx context.Context, id string) (Client, error)
	GetByTaxID(ctx context.Context, taxID string) (Client, error)
	List(ctx context.Context, filter Filter) ([]Client, error)
	Update(ctx context.Context, c Client) error
	Delete(ctx context.Context, id string) error
}
