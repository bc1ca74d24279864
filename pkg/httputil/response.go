package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

// ContextRequestID is the gin context key holding the request id.
const ContextRequestID = "request_id"

// Error is the body written for every failed request.
type Error struct {
	Message string `json:"message"`
}

// RespondWithError writes err as a {message} body with the status of its code.
// Upstream and internal details are logged and never sent to the caller.
func RespondWithError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Internal(err)
	}

	status := appErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("code", appErr.Code.String()).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(ContextRequestID)).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, Error{Message: appErr.Message})
}

// RespondWithMessage writes a bare {message} body.
func RespondWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Error{Message: message})
}
