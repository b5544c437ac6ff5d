package util

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks request structs against their `validate` tags.
var Validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationDetails maps each failing json field to the rule it broke.
func ValidationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[lowerFirst(fe.Field())] = fe.Tag()
	}
	return details
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
