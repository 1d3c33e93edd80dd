package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-fixture-users/internal/application"
	repo "github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/response"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/validation"
)

// fail maps service errors onto the response envelope.
func fail(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		ve *validation.Error
		ue *repo.UniquenessError
	)
	switch {
	case errors.As(err, &ve):
		response.Invalid(c, ve.Details())
	case errors.As(err, &ue):
		response.Error[any](c, http.StatusConflict, "conflict", map[string]string{ue.Field: "has already been taken"})
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, application.ErrNotFound), errors.Is(err, repo.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "record not found", nil)
	case errors.Is(err, application.ErrUnknownAssociation):
		response.Error[any](c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, application.ErrInvalidResetToken):
		response.Invalid(c, map[string]string{"reset_password_token": "is invalid"})
	case errors.Is(err, application.ErrSearchDisabled):
		response.Error[any](c, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		if logger != nil {
			logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}

// badRequest reports a payload that could not be decoded at all.
func badRequest(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}
