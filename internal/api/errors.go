package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"planty-of-food/internal/entity"
)

// status maps a service error to its HTTP status and client message.
// Unknown errors are hidden behind a generic message unless development is
// set.
func status(err error, development bool) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrUserNotFound),
		errors.Is(err, entity.ErrProductNotFound),
		errors.Is(err, entity.ErrOrderNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, entity.ErrInsufficientStock),
		errors.Is(err, entity.ErrDuplicateEmail),
		errors.Is(err, entity.ErrDuplicateRequest):
		return http.StatusConflict, err.Error()
	case errors.Is(err, entity.ErrInvalidStatus):
		return http.StatusUnprocessableEntity, err.Error()
	}

	if development {
		return http.StatusInternalServerError, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// ErrorHandler renders handler errors as {"message": ...}.
func ErrorHandler(development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := status(err, development)
		if code >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msgf("Error handling %s %s", c.Request().Method, c.Path())
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]string{"message": msg})
		}
		if err != nil {
			logger.Error().Err(err).Msg("Error writing error response")
		}
	}
}
