package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medinfo-api/internal/middleware"
	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/httputil"
)

// Service is implemented by internal/service/auth.
type Service interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error)
	LoginWithProvider(ctx context.Context, provider, token string) (*model.AuthResponse, error)
	Me(ctx context.Context, claims *model.TokenClaims) (*model.PublicUser, error)
}

type Handler struct {
	svc          Service
	authenticate gin.HandlerFunc
}

func NewHandler(svc Service, authenticate gin.HandlerFunc) *Handler {
	return &Handler{svc: svc, authenticate: authenticate}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/google", h.Google)
		auth.POST("/facebook", h.Facebook)
		auth.GET("/me", h.authenticate, h.Me)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, httputil.BindError(err))
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, httputil.BindError(err))
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Google(c *gin.Context) {
	var req model.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation("Google credential is required"))
		return
	}
	h.providerLogin(c, model.ProviderGoogle, req.Credential)
}

func (h *Handler) Facebook(c *gin.Context) {
	var req model.FacebookLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation("Facebook access token is required"))
		return
	}
	h.providerLogin(c, model.ProviderFacebook, req.AccessToken)
}

func (h *Handler) providerLogin(c *gin.Context, provider, token string) {
	resp, err := h.svc.LoginWithProvider(c.Request.Context(), provider, token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	user, err := h.svc.Me(c.Request.Context(), claims)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.AuthResponse{User: user})
}
