package validation

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-events-backend/internal/apperr"
)

// Options configures a Stage.
//
//   - Whitelist strips undeclared fields from the output.
//   - Transform returns coerced values instead of the raw input values.
//   - StopAtFirstError records at most one violation per field. Every field is
//     still evaluated.
//   - ImplicitConversion converts primitive-looking strings ("5", "true") to
//     the declared type before rules run.
//   - ForbidUnknown reports undeclared fields as violations.
type Options struct {
	Whitelist          bool
	Transform          bool
	StopAtFirstError   bool
	ImplicitConversion bool
	ForbidUnknown      bool
}

// Stage runs schema-driven validation. It holds no request state and is safe
// for concurrent use.
type Stage struct {
	opts     Options
	validate *validator.Validate
}

// New constructs a Stage with the given options.
func New(opts Options) *Stage {
	return &Stage{opts: opts, validate: validator.New()}
}

// Options returns the stage configuration.
func (s *Stage) Options() Options { return s.opts }

// Validate checks input against schema. input is usually a decoded JSON
// object (map[string]any); nil is treated as an empty object. Any other shape
// fails with a single payload-level FieldError.
//
// On success it returns the cleaned object. On failure the error is an
// *apperr.Error with status 422 and code apperr.CodeValidation.
func (s *Stage) Validate(schema Schema, input any) (map[string]any, error) {
	return s.run(schema, input, s.opts.Transform)
}

func (s *Stage) run(schema Schema, input any, transform bool) (map[string]any, error) {
	var raw map[string]any
	switch in := input.(type) {
	case nil:
		raw = map[string]any{}
	case map[string]any:
		raw = in
	default:
		return nil, apperr.Validation([]apperr.FieldError{{Message: "payload must be a JSON object"}})
	}

	var (
		violations []apperr.FieldError
		out        = make(map[string]any, len(schema))
		declared   = make(map[string]struct{}, len(schema))
	)

	for _, f := range schema {
		declared[f.Name] = struct{}{}

		value, present := raw[f.Name]
		clean, errs := s.checkField(f, value, present && value != nil)
		violations = append(violations, errs...)
		if len(errs) == 0 && present && value != nil {
			if transform {
				out[f.Name] = clean
			} else {
				out[f.Name] = value
			}
		}
	}

	var unknown []string
	for k := range raw {
		if _, ok := declared[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		if s.opts.ForbidUnknown {
			violations = append(violations, apperr.FieldError{Field: k, Message: unknownMessage(k)})
			continue
		}
		if !s.opts.Whitelist {
			out[k] = raw[k]
		}
	}

	if len(violations) > 0 {
		return nil, apperr.Validation(violations)
	}
	return out, nil
}

// checkField evaluates one field and returns its coerced value together with
// the violations found, in rule order.
func (s *Stage) checkField(f Field, value any, present bool) (any, []apperr.FieldError) {
	rules := parseRules(f.Rules)

	if !present {
		if rules.required {
			return nil, []apperr.FieldError{{Field: f.Name, Message: requiredMessage(f.Name)}}
		}
		return nil, nil
	}

	var errs []apperr.FieldError
	add := func(msg string) bool {
		errs = append(errs, apperr.FieldError{Field: f.Name, Message: msg})
		return s.opts.StopAtFirstError
	}

	if rules.required {
		if str, ok := value.(string); ok && strings.TrimSpace(str) == "" {
			if add(requiredMessage(f.Name)) {
				return nil, errs
			}
		}
	}

	clean, ok := coerce(f.Type, normalize(f.Type, value, s.opts.ImplicitConversion))
	if !ok {
		// Tag rules assume the declared kind; skip them on a type mismatch.
		add(typeMessage(f.Name, f.Type))
		return nil, errs
	}

	for _, tag := range rules.tags {
		if err := s.validate.Var(clean, tag); err != nil {
			if add(ruleMessage(f.Name, f.Type, tag)) {
				return nil, errs
			}
		}
	}
	return clean, errs
}

// Decode validates input and maps the cleaned object onto dst using dst's
// JSON tags. Declared fields always reach dst as coerced values so typed
// destinations work with Transform disabled.
func (s *Stage) Decode(schema Schema, input any, dst any) error {
	out, err := s.run(schema, input, true)
	if err != nil {
		return err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// FromValues turns query-string style values into an input object, keeping the
// first value of each key.
func FromValues(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}
