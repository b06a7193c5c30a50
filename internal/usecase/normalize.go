package usecase

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var inputValidator = validator.New()

// NormalizeEmail trims and lower-cases an email so lookups match the stored form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeAccessCode trims and upper-cases a typed access code.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validEmail(email string) bool {
	return inputValidator.Var(email, "required,email") == nil
}
