package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/realprep/exam-service/internal/errors"
	"github.com/realprep/exam-service/internal/models"
)

type ValidationErrors = apperrors.ValidationErrors

// Validator wraps the struct validator with the custom tags the request
// DTOs use.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new validator instance with custom validators registered.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)
	return &Validator{structValidator: structValidator}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates s and normalizes the error into ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("attempt_mode", validateAttemptMode)
	validate.RegisterValidation("choice_label", validateChoiceLabel)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateAttemptMode(fl validator.FieldLevel) bool {
	_, ok := models.ParseAttemptMode(fl.Field().String())
	return ok
}

func validateChoiceLabel(fl validator.FieldLevel) bool {
	return models.IsValidChoiceLabel(fl.Field().String())
}
