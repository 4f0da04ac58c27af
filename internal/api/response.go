package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/domain"
	"souviens_toi/internal/notify"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Envelope wraps every JSON response. Notifications are the user-facing
// messages raised while serving the request.
type Envelope struct {
	Data          any                   `json:"data,omitempty"`
	Error         *APIError             `json:"error,omitempty"`
	Notifications []notify.Notification `json:"notifications"`
}

func notifications(c *gin.Context) []notify.Notification {
	if r := notify.RecorderFromContext(c.Request.Context()); r != nil {
		return r.Drain()
	}
	return []notify.Notification{}
}

func RespondOK(c *gin.Context, status int, payload any) {
	c.JSON(status, Envelope{Data: payload, Notifications: notifications(c)})
}

func RespondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.AbortWithStatusJSON(status, Envelope{
		Error:         &APIError{Message: err.Error(), Code: code},
		Notifications: notifications(c),
	})
}

// RespondList answers with items even when err is set, so clients can keep
// rendering an empty list next to the error.
func RespondList[T any](c *gin.Context, items []T, err error) {
	if err == nil {
		RespondOK(c, http.StatusOK, items)
		return
	}
	status, code := statusFor(err)
	c.AbortWithStatusJSON(status, Envelope{
		Data:          items,
		Error:         &APIError{Message: err.Error(), Code: code},
		Notifications: notifications(c),
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAlreadyLinked):
		return http.StatusConflict, "already_linked"
	case errors.Is(err, domain.ErrInvalidReference):
		return http.StatusBadRequest, "invalid_reference"
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrEmptyTitle), errors.Is(err, domain.ErrStoryTooShort):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal"
}
