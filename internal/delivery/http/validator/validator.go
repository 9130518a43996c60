// Package validator plugs go-playground validation into echo.
package validator

import (
	validation "github.com/go-playground/validator/v10"
)

// EchoValidator implements echo.Validator.
type EchoValidator struct {
	validate *validation.Validate
}

// New creates the request validator.
func New() *EchoValidator {
	return &EchoValidator{validate: validation.New()}
}

// Validate implements echo.Validator.
func (v *EchoValidator) Validate(i any) error {
	return v.validate.Struct(i)
}
