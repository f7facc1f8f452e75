package validator

import (
	"sync"

	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/types"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// NewValidator builds the shared validator with the closed-set tags registered:
// `plan` and `template` accept only the values of types.Plan and types.TemplateType.
func NewValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
			return types.Plan(fl.Field().String()).Validate() == nil
		})
		_ = validate.RegisterValidation("template", func(fl validator.FieldLevel) bool {
			return types.TemplateType(fl.Field().String()).Validate() == nil
		})
	})
	return validate
}

func GetValidator() *validator.Validate {
	return NewValidator()
}

func ValidateRequest(req interface{}) error {
	if err := NewValidator().Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
