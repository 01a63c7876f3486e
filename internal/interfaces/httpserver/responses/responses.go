package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleError maps an application error onto an HTTP response and aborts.
func HandleError(c *gin.Context, err error, message string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(apperrors.HTTPStatus(appErr), ErrorResponse{
			Error:     appErr.Message,
			Code:      string(appErr.Type),
			RequestID: appErr.RequestID,
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error: message,
		Code:  string(apperrors.ErrorTypeInternal),
	})
}

// HandleNewError builds a handler-layer error and responds with it.
func HandleNewError(c *gin.Context, errorType apperrors.ErrorType, message string) {
	err := apperrors.New(c.Request.Context(), apperrors.LayerHandler, errorType, message, nil)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), ErrorResponse{
		Error:     err.Message,
		Code:      string(err.Type),
		RequestID: err.RequestID,
	})
}
