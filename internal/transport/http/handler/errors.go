package handler

import (
	"errors"
	"net/http"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/gin-gonic/gin"
)

const errInternalServer = "Internal server error"

// writeError maps a mutation/catalogue error to its HTTP status and a
// stable machine-readable code, mirroring the (status, message, code)
// triples the original routers raised as typed exceptions.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, domain.ErrHelperNotFound):
		status, code = http.StatusNotFound, "helper_not_found"
	case errors.Is(err, domain.ErrUserNotFound):
		status, code = http.StatusNotFound, "user_not_found"
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		status, code = http.StatusNotFound, "helper_not_registered"
	case errors.Is(err, domain.ErrSubscriptionExists):
		status, code = http.StatusConflict, "helper_already_registered"
	case errors.Is(err, domain.ErrAdminRequired):
		status, code = http.StatusForbidden, "admin_required"
	case errors.Is(err, domain.ErrMissingParameters):
		status, code = http.StatusBadRequest, "missing_parameters"
	case errors.Is(err, domain.ErrInvalidParameterType):
		status, code = http.StatusBadRequest, "invalid_parameter_type"
	case errors.Is(err, domain.ErrDuplicateScheduleExpression):
		status, code = http.StatusBadRequest, "duplicate_schedule_expression"
	case errors.Is(err, domain.ErrInvalidCronExpression):
		status, code = http.StatusBadRequest, "invalid_cron_expression"
	case errors.Is(err, domain.ErrSchedulingNotSupported):
		status, code = http.StatusBadRequest, "scheduling_not_supported"
	}

	message := errInternalServer
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	c.JSON(status, gin.H{"success": false, "message": message, "code": code})
}
