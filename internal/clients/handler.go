package clients

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/clients", h.create)
	rg.GET("/clients", h.list)
	rg.GET("/clients/tax-id/:taxId", h.getByTaxID)
	rg.GET("/clients/:id", h.get)
	rg.PUT("/clients/:id", h.update)
	rg.DELETE("/clients/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	client, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("clientId", client.ID)
	respond.Created(c, toResponse(client))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), Filter{Name: c.Query("name")})
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]ClientResponse, 0, len(list))
	for _, client := range list {
		resp = append(resp, toResponse(client))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	client, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(client))
}

func (h *Handler) getByTaxID(c *gin.Context) {
	client, err := h.Svc.GetByTaxID(c.Request.Context(), c.Param("taxId"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(client))
}

func (h *Handler) update(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	c.Set("clientId", c.Param("id"))
	client, err := h.Svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(client))
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("clientId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "client not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrTaxIDTaken):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to process client", nil)
	}
}
