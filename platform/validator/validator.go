// Package validator wraps go-playground/validator with the lead engine's
// custom rules registered. This is part of the platform layer.
package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the followup_frequency and weekday rules.
func New() *Validator {
	v := validator.New()
	registerDefaults(v)
	return &Validator{v: v}
}

// Struct validates a struct based on its tags.
func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// Var validates a single value against a tag.
func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// Validate is the shared instance used by transport-level handlers.
var Validate = New()

func registerDefaults(v *validator.Validate) {
	_ = v.RegisterValidation("followup_frequency", func(fl validator.FieldLevel) bool {
		switch strings.TrimSpace(fl.Field().String()) {
		case "", "twice_week", "weekly", "biweekly", "monthly":
			return true
		}
		return false
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= 0 && d <= 6
	})
}
