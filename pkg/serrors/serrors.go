package serrors

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Error is a structured, code-first error. The code is a stable machine
// identifier; params carry the values a caller needs to render a message.
// No human-language text is required to interpret one.
type Error struct {
	Code    string
	Message string
	Field   string
	Params  map[string]string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code, message, field string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// WithParam returns a copy of the error with the given parameter set.
func (e *Error) WithParam(key, value string) *Error {
	params := make(map[string]string, len(e.Params)+1)
	for k, v := range e.Params {
		params[k] = v
	}
	params[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Field:   e.Field,
		Params:  params,
	}
}

// ValidationErrors maps DTO field names to their violation.
type ValidationErrors map[string]*Error

// Codes flattens validation errors into a field → code map suitable for an
// API error envelope's meta section.
func (v ValidationErrors) Codes() map[string]string {
	codes := make(map[string]string, len(v))
	for field, err := range v {
		codes[field] = err.Code
	}
	return codes
}

var tagCodes = map[string]string{
	"required": "VALIDATION_REQUIRED",
	"email":    "VALIDATION_INVALID_EMAIL",
	"uuid":     "VALIDATION_INVALID_UUID",
	"min":      "VALIDATION_TOO_SMALL",
	"max":      "VALIDATION_TOO_LARGE",
	"oneof":    "VALIDATION_NOT_ALLOWED",
	"gte":      "VALIDATION_TOO_SMALL",
	"lte":      "VALIDATION_TOO_LARGE",
}

// ProcessValidatorErrors converts go-playground violations into structured
// errors keyed by struct field.
func ProcessValidatorErrors(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fieldErr := range errs {
		code, ok := tagCodes[fieldErr.Tag()]
		if !ok {
			code = "VALIDATION_FAILED"
		}
		serr := NewError(code, fmt.Sprintf("validation failed on %q", fieldErr.Tag()), fieldErr.Field())
		if fieldErr.Param() != "" {
			serr = serr.WithParam("constraint", fieldErr.Param())
		}
		out[fieldErr.Field()] = serr
	}
	return out
}
