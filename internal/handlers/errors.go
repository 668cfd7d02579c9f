package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"vaccine-tracker-server/internal/logger"
	"vaccine-tracker-server/internal/scheduling"
	"vaccine-tracker-server/internal/utils"
)

// respondSchedulingError maps the scheduling error taxonomy onto HTTP
// responses. Validation, not-found, invalid-transition and ownership errors
// are expected 4xx outcomes; derivation failures surface as retryable 500s.
func respondSchedulingError(c *gin.Context, err error) {
	var (
		validationErr *scheduling.ValidationError
		notFoundErr   *scheduling.NotFoundError
		transitionErr *scheduling.InvalidTransitionError
		ownershipErr  *scheduling.OwnershipError
		derivationErr *scheduling.DerivationError
	)
	switch {
	case errors.As(err, &validationErr):
		utils.BadRequest(c, validationErr.Error())
	case errors.As(err, &transitionErr):
		utils.BadRequest(c, transitionErr.Error())
	case errors.As(err, &notFoundErr):
		utils.NotFound(c, notFoundErr.Error())
	case errors.As(err, &ownershipErr):
		utils.Forbidden(c, ownershipErr.Error())
	case errors.As(err, &derivationErr):
		logger.Log.WithError(err).Error("vaccination record derivation failed")
		utils.InternalServerError(c, "Failed to derive vaccination record; the appointment was not completed. Please retry.")
	default:
		logger.Log.WithError(err).Error("unhandled scheduling error")
		utils.InternalServerError(c, "An unexpected error occurred")
	}
}
