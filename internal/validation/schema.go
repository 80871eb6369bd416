// Package validation is the boundary at which untyped request input (JSON
// bodies, query strings, path parameters) becomes typed.
//
// A Schema declares the expected fields in order. Each field has a declared
// Type and a comma-separated rule list using go-playground/validator tags
// (e.g. "required,min=1,max=255"). The Stage evaluates every declared field,
// records one or more FieldErrors per invalid field, and either returns the
// cleaned input or fails with apperr.Validation.
//
// The package never logs; failures are rendered and logged by the HTTP
// dispatcher.
package validation

import (
	"strings"
)

// Type is the declared type of a field.
type Type int

const (
	// Any accepts every JSON value unchanged.
	Any Type = iota
	String
	Int
	Float
	Bool
	// UUID is a string holding a canonical UUID.
	UUID
)

// article returns the type name prefixed for use in messages.
func (t Type) article() string {
	switch t {
	case String:
		return "a string"
	case Int:
		return "an integer"
	case Float:
		return "a number"
	case Bool:
		return "a boolean"
	case UUID:
		return "a UUID"
	default:
		return "a value"
	}
}

// Field declares one expected input field.
type Field struct {
	Name  string
	Type  Type
	Rules string
}

// Schema is an ordered list of fields; violations are reported in this order.
type Schema []Field

// ruleSet is the parsed form of Field.Rules.
type ruleSet struct {
	required bool
	tags     []string
}

func parseRules(rules string) ruleSet {
	var rs ruleSet
	for _, r := range strings.Split(rules, ",") {
		r = strings.TrimSpace(r)
		switch r {
		case "":
		case "required":
			rs.required = true
		case "omitempty":
			// presence is handled by the stage itself
		default:
			rs.tags = append(rs.tags, r)
		}
	}
	return rs
}
