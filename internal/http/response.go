package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	apperrors "notegrid.app/notegrid/internal/errors"
	middleware "notegrid.app/notegrid/internal/http/middlewares"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, successEnvelope{Success: true, Data: data})
}

// ErrorHandler renders every error as the failure envelope. Errors that are
// not an Exception become a 500 and are logged.
func ErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := http.StatusInternalServerError, apperrors.ErrInternal.Message
		var appErr *apperrors.Exception
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status, msg = appErr.StatusCode, appErr.Message
		case errors.As(err, &httpErr):
			status = httpErr.Code
			msg = messageForStatus(httpErr.Code)
		}

		if status >= http.StatusInternalServerError {
			logger.WithError(err).WithFields(log.Fields{
				"identity": middleware.Identity(c),
				"route":    c.Path(),
				"method":   c.Request().Method,
			}).Error("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorEnvelope{Success: false, Error: msg})
		}
		if err != nil {
			logger.WithError(err).Warn("write error response")
		}
	}
}

func messageForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return apperrors.ErrRouteNotFound.Message
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return apperrors.ErrInvalidBody.Message
	case http.StatusTooManyRequests:
		return apperrors.ErrRateLimited.Message
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized.Message
	}
	if status >= http.StatusInternalServerError {
		return apperrors.ErrInternal.Message
	}
	return http.StatusText(status)
}
