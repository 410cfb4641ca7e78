package validator

import (
	"github.com/go-playground/validator/v10"

	ierr "github.com/tirelane/tirelane/internal/errors"
)

var validate = validator.New()

// ValidateRequest validates a request struct against its validate tags.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			details := make(map[string]interface{}, len(validationErrors))
			for _, fieldErr := range validationErrors {
				details[fieldErr.Field()] = fieldErr.Tag()
			}
			return ierr.WithError(err).
				WithHint("Request validation failed").
				WithReportableDetails(details).
				Mark(ierr.ErrValidation)
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			Mark(ierr.ErrValidation)
	}
	return nil
}
