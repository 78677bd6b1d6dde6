package handler // HTTP handlers for the hotel front desk API

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/lock"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// apiError maps a domain error to its HTTP status.  Unknown errors become
// a 500 that keeps the cause as the internal error for logging.
func apiError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	}
	var te *model.TransitionError
	if errors.As(err, &te) {
		return echo.NewHTTPError(http.StatusConflict, echo.Map{
			"error":          te.Error(),
			"current_status": te.Current.String(),
		})
	}
	switch {
	case errors.Is(err, model.ErrInvalidRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, repository.ErrConflict.Error())
	case errors.Is(err, repository.ErrRoomNumberTaken):
		return echo.NewHTTPError(http.StatusConflict, "Room number already exists")
	case errors.Is(err, repository.ErrRoomInUse):
		return echo.NewHTTPError(http.StatusConflict, "Room has bookings and cannot be deleted")
	case errors.Is(err, database.ErrConstraintViolation):
		return echo.NewHTTPError(http.StatusConflict, "constraint violation")
	case errors.Is(err, lock.ErrNotAcquired):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "room is busy, try again").SetInternal(err)
	case errors.Is(err, database.ErrStorageUnavailable), errors.Is(err, lock.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

// ErrorHandler renders every error as {"error": "..."}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he := apiError(err)
	body, ok := he.Message.(echo.Map)
	if !ok {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		body = echo.Map{"error": msg}
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, body)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
