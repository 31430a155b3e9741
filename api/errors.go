package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkaraca/skyticket/internal/domain"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSchedule), errors.Is(err, domain.ErrInvalidSeat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrScheduleConflict),
		errors.Is(err, domain.ErrDuplicateFlight),
		errors.Is(err, domain.ErrCapacityBelowDemand),
		errors.Is(err, domain.ErrSeatTaken),
		errors.Is(err, domain.ErrNoAvailability),
		errors.Is(err, domain.ErrAlreadyCancelled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrFlightNotFound),
		errors.Is(err, domain.ErrTicketNotFound),
		errors.Is(err, domain.ErrCityNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
