package validation

import (
	"fmt"
	"strings"
)

// ruleMessage renders the human-readable description of a failed tag rule.
func ruleMessage(field string, t Type, rule string) string {
	tag, param, _ := strings.Cut(rule, "=")
	textual := t == String || t == UUID

	switch tag {
	case "min":
		if textual {
			return fmt.Sprintf("%s must be at least %s characters long", field, param)
		}
		return fmt.Sprintf("%s must not be less than %s", field, param)
	case "max":
		if textual {
			return fmt.Sprintf("%s must be at most %s characters long", field, param)
		}
		return fmt.Sprintf("%s must not be greater than %s", field, param)
	case "len":
		if textual {
			return fmt.Sprintf("%s must be exactly %s characters long", field, param)
		}
		return fmt.Sprintf("%s must have length %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(strings.Fields(param), ", "))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "alpha":
		return fmt.Sprintf("%s must contain only letters", field)
	case "alphanum":
		return fmt.Sprintf("%s must contain only letters and digits", field)
	case "uppercase":
		return fmt.Sprintf("%s must be uppercase", field)
	case "lowercase":
		return fmt.Sprintf("%s must be lowercase", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a UUID", field)
	}
	return fmt.Sprintf("%s failed the '%s' rule", field, rule)
}

func requiredMessage(field string) string {
	return field + " is required"
}

func typeMessage(field string, t Type) string {
	return fmt.Sprintf("%s must be %s", field, t.article())
}

func unknownMessage(field string) string {
	return fmt.Sprintf("property %s should not exist", field)
}
