package accounts

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/handler"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/middleware"
)

// Handler serves the auth routes.
type Handler struct {
	svc  *Service
	errs handler.Responder
}

func NewHandler(svc *Service, errs handler.Responder) *Handler {
	return &Handler{svc: svc, errs: errs}
}

// RegisterRoutes mounts /auth and the authenticated /accounts resource on rg.
// guard runs in order in front of every authenticated route and must start
// with the authentication middleware.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler, guard ...gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	authed := a.Group("", guard...)
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)

	ctl := handler.New("accounts", h.svc.Documents(), h.errs, handler.WithImmutable(ProtectedFields...))
	handler.Register(rg.Group("", guard...).Group("", ownerOrAdmin(h.errs)), "/accounts", ctl)
}

// ownerOrAdmin lets admins use every account route and everyone else only
// the routes addressing their own account by id.
func ownerOrAdmin(errs handler.Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.Claims(c)
		if !ok {
			errs.HandleErrors(c, apperrors.Unauthorized("Authorization header missing"))
			return
		}
		if role, _ := claims["role"].(string); role == RoleAdmin {
			c.Next()
			return
		}
		sub, _ := claims["sub"].(string)
		if id := c.Param("id"); sub == "" || id != sub {
			errs.HandleErrors(c, apperrors.Forbidden("Access to this account is not allowed"))
			return
		}
		c.Next()
	}
}

func (h *Handler) Register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.errs.HandleErrors(c, err)
		return
	}
	acc, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		h.errs.HandleErrors(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "CREATED", "error": nil, "count": 1, "data": acc})
}

func (h *Handler) Login(c *gin.Context) {
	var in LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.errs.HandleErrors(c, err)
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), in)
	if err != nil {
		h.errs.HandleErrors(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"error":       nil,
		"accessToken": sess.AccessToken,
		"expiresIn":   sess.ExpiresIn,
		"data":        sess.Account,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		h.errs.HandleErrors(c, apperrors.Unauthorized("Authorization header missing"))
		return
	}
	if err := h.svc.Logout(c.Request.Context(), claims, middleware.TokenID(claims, c.GetString(middleware.TokenKey))); err != nil {
		h.errs.HandleErrors(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "error": nil, "message": "logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		h.errs.HandleErrors(c, apperrors.Unauthorized("Authorization header missing"))
		return
	}
	acc, err := h.svc.Me(c.Request.Context(), claims)
	if err != nil {
		h.errs.HandleErrors(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "error": nil, "count": 1, "data": acc})
}
