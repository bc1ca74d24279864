package chatbot

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/httputil"
)

type Responder interface {
	Reply(message string) (string, error)
}

type Handler struct {
	responder Responder
}

func NewHandler(responder Responder) *Handler {
	return &Handler{responder: responder}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chatbot/chat", h.Chat)
}

func (h *Handler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation("Message required"))
		return
	}

	reply, err := h.responder.Reply(req.Message)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ChatResponse{Success: true, Response: reply})
}
