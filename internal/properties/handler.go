package properties

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/approval"
	"collateral-backend/internal/shared/geo"
	"collateral-backend/internal/shared/server/middleware"
	"collateral-backend/internal/shared/server/respond"
	"collateral-backend/internal/shared/server/upload"
)

// StatusReconciler recomputes a property's status from its documents.
type StatusReconciler interface {
	Reconcile(ctx context.Context, propertyID string) (approval.Result, error)
}

type Handler struct {
	Svc        *Service
	Reconciler StatusReconciler
	Limits     upload.Limits
}

func NewHandler(svc *Service, reconciler StatusReconciler, limits upload.Limits) *Handler {
	return &Handler{Svc: svc, Reconciler: reconciler, Limits: limits}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/properties", h.create)
	rg.GET("/properties", h.list)
	rg.GET("/properties/:id", h.get)
	rg.PUT("/properties/:id", h.update)
	rg.DELETE("/properties/:id", h.delete)
	rg.POST("/properties/:id/reconcile", middleware.RequireAdmin(), h.reconcile)
}

func (h *Handler) create(c *gin.Context) {
	value, err := parseFloat(c.PostForm("marketValue"), "marketValue")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	loc, err := parseLocation(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	in := CreateInput{
		ClientID:    c.PostForm("clientId"),
		Address:     c.PostForm("address"),
		MarketValue: value,
		Location:    loc,
	}
	photo, ok, err := upload.Optional(c, "photo", h.Limits)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	if ok {
		in.Photo = &photo
	}

	p, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("propertyId", p.ID)
	respond.Created(c, ToResponse(p))
}

func (h *Handler) list(c *gin.Context) {
	filter := Filter{
		ClientID:        c.Query("clientId"),
		AddressContains: c.Query("address"),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := approval.ParseStatus(raw)
		if !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid status", nil)
			return
		}
		filter.Status = status
	}
	for key, dst := range map[string]**float64{"minValue": &filter.MinValue, "maxValue": &filter.MaxValue} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := parseFloat(raw, key)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		*dst = &v
	}

	list, err := h.Svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, ToResponses(list))
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, ToResponse(p))
}

func (h *Handler) update(c *gin.Context) {
	var in UpdateInput
	if v, ok := c.GetPostForm("clientId"); ok {
		in.ClientID = &v
	}
	if v, ok := c.GetPostForm("address"); ok {
		in.Address = &v
	}
	if raw, ok := c.GetPostForm("marketValue"); ok {
		v, err := parseFloat(raw, "marketValue")
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		in.MarketValue = &v
	}
	loc, err := parseLocation(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	in.Location = loc
	photo, ok, err := upload.Optional(c, "photo", h.Limits)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	if ok {
		in.Photo = &photo
	}

	c.Set("propertyId", c.Param("id"))
	p, err := h.Svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, ToResponse(p))
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("propertyId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) reconcile(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	c.Set("propertyId", id)
	if _, err := h.Svc.Get(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	res, err := h.Reconciler.Reconcile(ctx, id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to update property status", nil)
		return
	}
	if res.Changed {
		c.Set("statusTransition", string(res.Previous)+"->"+string(res.Status))
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, ToResponse(p))
}

func parseFloat(raw, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	return v, nil
}

// parseLocation reads optional lat/lon form fields; both or neither.
func parseLocation(c *gin.Context) (*geo.Point, error) {
	rawLat, hasLat := c.GetPostForm("lat")
	rawLon, hasLon := c.GetPostForm("lon")
	if !hasLat && !hasLon {
		return nil, nil
	}
	if !hasLat || !hasLon {
		return nil, errors.New("lat and lon must be sent together")
	}
	lat, err := parseFloat(rawLat, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := parseFloat(rawLon, "lon")
	if err != nil {
		return nil, err
	}
	return &geo.Point{Lat: lat, Lon: lon}, nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "property not found", nil)
	case errors.Is(err, ErrClientNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "client not found", nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyFile), errors.Is(err, ErrGeocoding):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrStore):
		respond.Error(c, http.StatusBadGateway, "storage_error", "file storage is unavailable", nil)
	case errors.Is(err, ErrPersistence):
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to save property", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
