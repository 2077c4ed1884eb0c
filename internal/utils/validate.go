package utils

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// passwordSymbols is the fixed set of symbols accepted by the password
// policy. It matches the set enforced at registration in the web client.
const passwordSymbols = "@$!%*?&"

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// NewValidator returns a validator with the custom `password` and
// `username` rules registered. Request DTOs in the handler package use
// it through struct tags; the builtin `email` rule covers the
// local@domain.tld shape.
func NewValidator() *validator.Validate {
	v := validator.New()
	// RegisterValidation only errors on an empty tag name.
	_ = v.RegisterValidation("password", passwordRule)
	_ = v.RegisterValidation("username", usernameRule)
	return v
}

func passwordRule(fl validator.FieldLevel) bool {
	return ValidPassword(fl.Field().String())
}

func usernameRule(fl validator.FieldLevel) bool {
	return usernameRe.MatchString(fl.Field().String())
}

// ValidPassword reports whether the password satisfies the policy:
// at least 8 characters with one lowercase, one uppercase, one digit and
// one symbol from the fixed set.
func ValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}
