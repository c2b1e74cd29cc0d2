package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/planventa/planventa/pkg/constants"
	"github.com/planventa/planventa/pkg/serrors"
)

type uploadDTO struct {
	EntityType     string `form:"entity_type" validate:"required"`
	UpdateExisting bool   `form:"update_existing"`
}

func (d *uploadDTO) normalize() {
	d.EntityType = strings.TrimSpace(d.EntityType)
}

// Ok validates the decoded form and returns field violations keyed by
// struct field, in envelope-meta shape.
func (d *uploadDTO) Ok() (map[string]string, bool) {
	d.normalize()

	err := constants.Validate.Struct(d)
	if err == nil {
		return map[string]string{}, true
	}
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return map[string]string{"EntityType": "VALIDATION_FAILED"}, false
	}
	return serrors.ProcessValidatorErrors(violations).Codes(), false
}
