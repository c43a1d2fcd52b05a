package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/quicklyway/internal/common"
	"github.com/gin-gonic/gin"
)

const internalErrorMessage = "internal server error"

type messageResponse struct {
	Message string `json:"message"`
}

type fieldErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field"`
}

// writeError maps service errors to HTTP responses. tokenStatus is the status
// for common.ErrInvalidOrExpiredToken, which differs between refresh (401)
// and reset-password (400). Unrecognized errors are logged and hidden.
func (h *Handler) writeError(c *gin.Context, err error, tokenStatus int) {
	var ve *common.ValidationError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, fieldErrorResponse{Message: ve.Error(), Field: ve.Field})
	case errors.Is(err, common.ErrMissingToken):
		c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	case errors.Is(err, common.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, messageResponse{Message: common.ErrDuplicateEmail.Error()})
	case errors.Is(err, common.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, messageResponse{Message: common.ErrInvalidCredentials.Error()})
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		c.JSON(tokenStatus, messageResponse{Message: common.ErrInvalidOrExpiredToken.Error()})
	case errors.Is(err, common.ErrUserNotFound):
		c.JSON(http.StatusNotFound, messageResponse{Message: common.ErrUserNotFound.Error()})
	default:
		h.logger.Error(c.Request.Context(), "request failed",
			"error", err,
			"path", c.Request.URL.Path,
			"request_id", c.Writer.Header().Get(common.RequestIDHeader))
		c.JSON(http.StatusInternalServerError, messageResponse{Message: internalErrorMessage})
	}
}
