package translate

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/pkg/httputil"
)

type Translator interface {
	Translate(ctx context.Context, req *model.TranslateRequest) (*model.TranslateResponse, error)
}

type Handler struct {
	translator Translator
}

func NewHandler(translator Translator) *Handler {
	return &Handler{translator: translator}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/translate", h.Translate)
}

func (h *Handler) Translate(c *gin.Context) {
	var req model.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, httputil.BindError(err))
		return
	}

	resp, err := h.translator.Translate(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
