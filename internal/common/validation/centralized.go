// Package validation wraps go-playground/validator with the tags used by the
// cache records and the configuration.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"editorial-cache/internal/common/errors"
	"editorial-cache/internal/common/utils"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var journalCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// Validator validates structs and single values using struct tags
type Validator struct {
	validate *validator.Validate
}

// FieldError is a single failed rule
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// New creates a validator with the custom tags registered:
//   - journal_code: 1-32 letters, digits, "-" or "_" (SICON, SIFIN, MF ...)
//   - cron_expression: a standard 5-field spec or a descriptor such as "@every 1h"
//   - duration: anything utils.ParseDuration accepts ("5m", "90d")
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("journal_code", func(fl validator.FieldLevel) bool {
		return journalCodePattern.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("cron_expression", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})

	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := utils.ParseDuration(fl.Field().String())
		return err == nil
	})

	return &Validator{validate: v}
}

var defaultValidator = New()

// Struct validates s with the package-level validator
func Struct(s interface{}) error {
	return defaultValidator.Struct(s)
}

// Var validates a single value with the package-level validator
func Var(field interface{}, tag string) error {
	return defaultValidator.Var(field, tag)
}

// Struct validates a struct using its `validate` tags
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return formatErrors(err)
	}
	return nil
}

// Var validates a single variable against tag
func (v *Validator) Var(field interface{}, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return formatErrors(err)
	}
	return nil
}

func formatErrors(err error) error {
	fieldErrors := extractErrors(err)
	if len(fieldErrors) == 1 {
		return errors.ValidationError(fieldErrors[0].Message)
	}

	messages := make([]string, len(fieldErrors))
	for i, e := range fieldErrors {
		messages[i] = e.Message
	}
	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func extractErrors(err error) []FieldError {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "unknown", Tag: "error", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: formatFieldError(fe),
		})
	}
	return out
}

func formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", err.Field())
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address", err.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", err.Field(), err.Param())
	case "gtefield":
		return fmt.Sprintf("field '%s' must not be before %s", err.Field(), err.Param())
	case "hostname_port":
		return fmt.Sprintf("field '%s' must be host:port", err.Field())
	case "journal_code":
		return fmt.Sprintf("field '%s' must be a journal code (letters, digits, '-' or '_')", err.Field())
	case "cron_expression":
		return fmt.Sprintf("field '%s' must be a valid cron expression", err.Field())
	case "duration":
		return fmt.Sprintf("field '%s' must be a valid duration", err.Field())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", err.Field(), err.Tag())
	}
}
