package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzalewski/secadmin-api/pkg/apperror"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// WriteError maps an application error onto an HTTP status and the standard
// error envelope. Unknown errors come back as a bare 500 so internals never
// leak into responses.
func WriteError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperror.ErrNotFound:
		status = http.StatusNotFound
	case apperror.ErrBadRequest, apperror.ErrPolicyViolation, apperror.ErrChallengeIntegrity:
		status = http.StatusBadRequest
	case apperror.ErrConflict:
		status = http.StatusConflict
	case apperror.ErrUnauthorized, apperror.ErrInvalidCredentials, apperror.ErrSessionExpired:
		status = http.StatusUnauthorized
	case apperror.ErrForbidden, apperror.ErrCaptchaFailed:
		status = http.StatusForbidden
	case apperror.ErrAccountLocked:
		status = http.StatusLocked
	}

	c.JSON(status, NewErrorResponse(appErr.Message))
}
