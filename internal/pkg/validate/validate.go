// Package validate provides a shared validator instance.
package validate

import "github.com/go-playground/validator/v10"

var v = validator.New()

// Validate returns the shared validator.
func Validate() *validator.Validate {
	return v
}
