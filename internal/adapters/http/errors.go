package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
)

const (
	msgUnknown       = "unknownError"
	msgUnauthorized  = "unauthorized"
	msgUserNotFound  = "userNotFound"
	msgUserNotMember = "userNotMember"
	msgInvalidRole   = "invalidRole"
	msgValidation    = "validation failed"
)

// statusCode renders a status as BAD_REQUEST, NOT_FOUND and so on.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// mapError translates an error returned by a handler into a status and body.
func mapError(err error) (int, ErrorResponse) {
	var (
		validationErrs validator.ValidationErrors
		httpErr        *echo.HTTPError
	)

	switch {
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest, ErrorResponse{
			Message: msgValidation,
			Code:    statusCode(http.StatusBadRequest),
			Details: validationErrs.Error(),
		}
	case errors.As(err, &httpErr):
		msg := fmt.Sprint(httpErr.Message)
		if httpErr.Code >= http.StatusInternalServerError {
			msg = msgUnknown
		}
		return httpErr.Code, ErrorResponse{Message: msg, Code: statusCode(httpErr.Code)}
	}

	status, msg := http.StatusInternalServerError, msgUnknown
	switch {
	case errors.Is(err, entities.ErrNotAuthenticated),
		errors.Is(err, entities.ErrInvalidToken),
		errors.Is(err, entities.ErrInactiveAccount):
		status, msg = http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, entities.ErrUserNotFound):
		status, msg = http.StatusNotFound, msgUserNotFound
	case errors.Is(err, entities.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entities.ErrInvalidAssignee):
		status, msg = http.StatusBadRequest, msgUserNotMember
	case errors.Is(err, entities.ErrInvalidRole):
		status, msg = http.StatusBadRequest, msgInvalidRole
	case errors.Is(err, entities.ErrConflict),
		errors.Is(err, entities.ErrOwnerImmutable),
		errors.Is(err, entities.ErrNotMember):
		status = http.StatusBadRequest
	}

	return status, ErrorResponse{Message: msg, Code: statusCode(status)}
}

// ErrorHandler is the echo HTTPErrorHandler. Internal errors are logged and
// never echoed to the client.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		status, body := mapError(err)

		if status >= http.StatusInternalServerError {
			log.Errorw("Internal server error",
				"error", err,
				"path", c.Request().URL.Path,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
		}

		if c.Response().Committed {
			return
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Errorw("Error sending response", "error", err)
		}
	}
}
