package search

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/properties"
	"collateral-backend/internal/shared/geo"
	"collateral-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
}

type hitResponse struct {
	properties.PropertyResponse
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

func (h *Handler) search(c *gin.Context) {
	q := Query{
		Address: c.Query("address"),
		TaxID:   c.Query("taxId"),
	}

	rawLat, rawLon := c.Query("lat"), c.Query("lon")
	if rawLat != "" || rawLon != "" {
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(rawLon), 64)
		if errLat != nil || errLon != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "lat and lon must both be numbers", nil)
			return
		}
		q.Near = &geo.Point{Lat: lat, Lon: lon}
	}
	if raw := c.Query("radiusKm"); raw != "" {
		r, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "radiusKm must be a number", nil)
			return
		}
		q.RadiusKm = r
	}

	hits, err := h.Svc.Search(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "search failed", nil)
		return
	}

	out := make([]hitResponse, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hitResponse{PropertyResponse: properties.ToResponse(hit.Property), DistanceKm: hit.DistanceKm})
	}
	respond.OK(c, out)
}
