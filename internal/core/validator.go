package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/abhinavuser/reflectometry/internal/config"
	"github.com/abhinavuser/reflectometry/internal/types"
)

// Validator wraps go-playground/validator for request payloads. Field names
// in errors use the JSON tag so clients see the names they sent.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.RegisterPhoneValidation(v); err != nil {
		// Only fails on an empty tag or nil func.
		panic(err)
	}
	return &Validator{validate: v, logger: logger}
}

// ValidateStruct checks s against its validate tags. Failures are returned
// as a validation_invalid_field AppError whose details map each field to
// the rule it broke.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("validator misuse", "error", err.Error())
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
	}
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationInvalidField,
		"request contains invalid fields",
		err,
		details,
	)
}

// ValidPhone reports whether s is an E.164 phone number with its leading "+".
func (v *Validator) ValidPhone(s string) bool {
	return v.validate.Var(s, "required,"+config.PhoneTag) == nil
}
