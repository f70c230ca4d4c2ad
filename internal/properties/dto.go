package properties

import (
	"time"

	"collateral-backend/internal/shared/geo"
)

// PropertyResponse is the outward-facing representation of a property.
type PropertyResponse struct {
	ID          string     `json:"id"`
	ClientID    *string    `json:"clientId"`
	Address     string     `json:"address"`
	MarketValue float64    `json:"marketValue"`
	Location    *geo.Point `json:"location"`
	PhotoURL    *string    `json:"photoUrl"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func ToResponse(p Property) PropertyResponse {
	return PropertyResponse{
		ID:          p.ID,
		ClientID:    p.ClientID,
		Address:     p.Address,
		MarketValue: p.MarketValue,
		Location:    p.Location,
		PhotoURL:    p.PhotoURL,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToResponses(list []Property) []PropertyResponse {
	out := make([]PropertyResponse, 0, len(list))
	for _, p := range list {
		out = append(out, ToResponse(p))
	}
	return out
}
