package properties

import (
	"time"

	"collateral-backend/internal/approval"
	"collateral-backend/internal/shared/geo"
)

// Property is a piece of real estate offered as collateral. Status is
// derived from the property's documents.
type Property struct {
	ID          string
	ClientID    *string
	Address     string
	MarketValue float64
	Location    *geo.Point
	PhotoURL    *string
	Status      approval.Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
