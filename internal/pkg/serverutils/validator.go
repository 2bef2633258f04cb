package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest checks the validate tags of a request DTO.
func ValidateRequest(req interface{}) error {
	return validate.Struct(req)
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", e.Field(), e.Tag(), e.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", e.Field(), e.Tag()))
	}
	return strings.Join(parts, "; ")
}
