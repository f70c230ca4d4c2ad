package documents

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/shared/server/middleware"
	"collateral-backend/internal/shared/server/respond"
	"collateral-backend/internal/shared/server/upload"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc    *Service
	Limits upload.Limits
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, limits upload.Limits) *Handler {
	return &Handler{Svc: svc, Limits: limits}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.create)
	rg.POST("/documents/batch", h.createBatch)
	rg.GET("/documents/:id", h.get)
	rg.PUT("/documents/:id", h.update)
	rg.PUT("/documents/:id/status", middleware.RequireAdmin(), h.updateStatus)
	rg.DELETE("/documents/:id", h.delete)
	rg.GET("/properties/:id/documents", h.listByProperty)
}

func (h *Handler) create(c *gin.Context) {
	file, err := upload.Required(c, "file", h.Limits)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	doc, err := h.Svc.Create(c.Request.Context(), CreateInput{
		PropertyID: c.PostForm("propertyId"),
		Type:       c.PostForm("type"),
		File:       file,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Set("documentId", doc.ID)
	respond.Created(c, toResponse(doc))
}

func (h *Handler) createBatch(c *gin.Context) {
	files, err := upload.Many(c, "files", h.Limits)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	docs, err := h.Svc.CreateBatch(c.Request.Context(), c.PostForm("propertyId"), c.PostForm("type"), files)
	if err != nil {
		var batchErr *BatchError
		if errors.As(err, &batchErr) {
			respond.Error(c, http.StatusInternalServerError, "processing_error", batchMessage(batchErr), gin.H{
				"fileIndex": batchErr.Index,
				"created":   toResponses(docs),
			})
			return
		}
		writeError(c, err)
		return
	}

	respond.Created(c, toResponses(docs))
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) update(c *gin.Context) {
	var in UpdateInput
	if v, ok := c.GetPostForm("type"); ok {
		in.Type = &v
	}
	if v, ok := c.GetPostForm("status"); ok {
		if !middleware.IsAdmin(c) {
			respond.Error(c, http.StatusForbidden, "forbidden", "only administrators can change document status", nil)
			return
		}
		in.Status = &v
	}
	file, ok, err := upload.Optional(c, "file", h.Limits)
	if err != nil {
		writeUploadError(c, err)
		return
	}
	if ok {
		in.File = &file
	}

	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "status is required", nil)
		return
	}

	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.Update(c.Request.Context(), c.Param("id"), UpdateInput{Status: &req.Status})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("statusTransition", string(doc.Status))
	respond.OK(c, toResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) listByProperty(c *gin.Context) {
	docs, err := h.Svc.ListByProperty(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponses(docs))
}

func writeUploadError(c *gin.Context, err error) {
	if upload.IsClientError(err) {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read upload", nil)
}

// batchMessage names the failed file without exposing the underlying cause.
func batchMessage(e *BatchError) string {
	return fmt.Sprintf("failed to process file %d (%s)", e.Index, e.Name)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrPropertyNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "property not found", nil)
	case errors.Is(err, ErrInvalidDocumentType),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrEmptyFile),
		errors.Is(err, ErrPropertyRequired):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrStore):
		respond.Error(c, http.StatusBadGateway, "storage_error", "file storage is unavailable", nil)
	case errors.Is(err, ErrPersistence):
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to save document", nil)
	case errors.Is(err, ErrReconcile):
		respond.Error(c, http.StatusInternalServerError, "persistence_error", "failed to update property status", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
