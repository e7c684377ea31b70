// utils/validation.go
package utils

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

// NormalizePhone strips formatting characters and a "whatsapp:" channel prefix.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:")
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(cleaned)
}

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	// Allows + prefix followed by up to 15 digits
	return phonePattern.MatchString(NormalizePhone(phone))
}

// ValidateStruct runs go-playground/validator tags on v.
func ValidateStruct(v interface{}) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate.Struct(v)
}
