package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/shared/server/middleware"
	"collateral-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc          *Service
	LoginLimiter *middleware.RateLimiter
}

func NewHandler(svc *Service, loginLimiter *middleware.RateLimiter) *Handler {
	return &Handler{Svc: svc, LoginLimiter: loginLimiter}
}

// RegisterPublicRoutes mounts the routes that do not need a token.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.register)
	if h.LoginLimiter != nil {
		rg.POST("/auth/login", middleware.RateLimit("auth.login", h.LoginLimiter), h.login)
	} else {
		rg.POST("/auth/login", h.login)
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/profile", h.me)
	rg.PUT("/auth/profile", h.updateMe)
	rg.DELETE("/auth/profile", h.deleteMe)

	admin := rg.Group("/users", middleware.RequireAdmin())
	admin.GET("", h.list)
	admin.GET("/:id", h.get)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.delete)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	session, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		Username: req.Username,
		LastName: req.LastName,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Created(c, sessionResponse{Token: session.Token, User: toResponse(session.User)})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	session, err := h.Svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, sessionResponse{Token: session.Token, User: toResponse(session.User)})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(user))
}

func (h *Handler) updateMe(c *gin.Context) {
	h.updateUser(c, middleware.UserIDFromContext(c), false)
}

func (h *Handler) deleteMe(c *gin.Context) {
	h.deleteUser(c, middleware.UserIDFromContext(c))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]UserResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toResponse(u))
	}
	respond.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(user))
}

func (h *Handler) update(c *gin.Context) {
	h.updateUser(c, c.Param("id"), true)
}

func (h *Handler) delete(c *gin.Context) {
	h.deleteUser(c, c.Param("id"))
}

func (h *Handler) updateUser(c *gin.Context, userID string, allowRole bool) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	in := UpdateInput{Username: req.Username, LastName: req.LastName}
	if req.Role != nil {
		if !allowRole {
			respond.Error(c, http.StatusForbidden, "forbidden", "role can only be changed by an administrator", nil)
			return
		}
		in.Role = req.Role
	}
	user, err := h.Svc.Update(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(user))
}

func (h *Handler) deleteUser(c *gin.Context, userID string) {
	if err := h.Svc.Delete(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
	case errors.Is(err, ErrUsernameTaken):
		respond.Error(c, http.StatusConflict, "conflict", "username already exists", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process user request", nil)
	}
}
