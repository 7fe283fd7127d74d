package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParamKind declares how a raw query-string parameter must be parsed.
type ParamKind int

const (
	KindCoordinate ParamKind = iota
	KindNumeric
	KindInteger
	KindEnum
	KindString
)

// Reason identifies which rule a parameter broke.
type Reason string

const (
	ReasonMissing     Reason = "missing"
	ReasonNotANumber  Reason = "not_a_number"
	ReasonOutOfRange  Reason = "out_of_range"
	ReasonInvalidEnum Reason = "invalid_enum"
)

// ValidationError reports the first parameter that failed and why.
type ValidationError struct {
	Param  string
	Reason Reason
	Detail string
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q: %s (%s)", v.Param, v.Detail, v.Reason)
}

// Field declares the rules for one named parameter.
type Field struct {
	Kind     ParamKind
	Required bool
	Min      *float64 // numeric/integer lower bound, inclusive
	Max      *float64 // numeric/integer upper bound, inclusive
	Enum     []string // allowed values for KindEnum
	Default  string   // applied when the parameter is absent and not required
}

// Schema maps parameter names to their rules.
type Schema map[string]Field

// Bound is a convenience for declaring Min/Max literals inline.
func Bound(v float64) *float64 { return &v }

// numberPattern matches plain decimal numbers only; anything else in a
// numeric or coordinate slot is rejected before it can reach a query.
var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// SanitizeParams validates raw string parameters against the schema and
// returns the parsed values. It is pure: no storage, no cache, and the
// input map is never mutated. The first violation aborts with a
// *ValidationError naming the parameter.
func SanitizeParams(schema Schema, raw map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(schema))

	for name, field := range schema {
		value, ok := raw[name]
		if !ok || value == "" {
			if field.Required {
				return nil, &ValidationError{Param: name, Reason: ReasonMissing, Detail: "required parameter is missing"}
			}
			if field.Default == "" {
				continue
			}
			value = field.Default
		}

		parsed, err := sanitizeOne(name, field, value)
		if err != nil {
			return nil, err
		}
		out[name] = parsed
	}

	return out, nil
}

func sanitizeOne(name string, field Field, value string) (any, error) {
	switch field.Kind {
	case KindCoordinate:
		f, err := parseNumber(name, value)
		if err != nil {
			return nil, err
		}
		lo, hi := -90.0, 90.0
		if strings.Contains(strings.ToLower(name), "lng") || strings.Contains(strings.ToLower(name), "lon") {
			lo, hi = -180.0, 180.0
		}
		if f < lo || f > hi {
			return nil, &ValidationError{
				Param:  name,
				Reason: ReasonOutOfRange,
				Detail: fmt.Sprintf("must be between %g and %g", lo, hi),
			}
		}
		return f, nil

	case KindNumeric:
		f, err := parseNumber(name, value)
		if err != nil {
			return nil, err
		}
		if err := checkBounds(name, f, field); err != nil {
			return nil, err
		}
		return f, nil

	case KindInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, &ValidationError{Param: name, Reason: ReasonNotANumber, Detail: "must be an integer"}
		}
		if err := checkBounds(name, float64(n), field); err != nil {
			return nil, err
		}
		return n, nil

	case KindEnum:
		for _, allowed := range field.Enum {
			if value == allowed {
				return value, nil
			}
		}
		return nil, &ValidationError{
			Param:  name,
			Reason: ReasonInvalidEnum,
			Detail: fmt.Sprintf("must be one of: %s", strings.Join(field.Enum, ", ")),
		}

	case KindString:
		return value, nil

	default:
		return nil, &ValidationError{Param: name, Reason: ReasonOutOfRange, Detail: "unknown parameter kind"}
	}
}

func parseNumber(name, value string) (float64, error) {
	if !numberPattern.MatchString(value) {
		return 0, &ValidationError{Param: name, Reason: ReasonNotANumber, Detail: "must be a valid number"}
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &ValidationError{Param: name, Reason: ReasonNotANumber, Detail: "must be a valid number"}
	}
	return f, nil
}

func checkBounds(name string, v float64, field Field) error {
	if field.Min != nil && v < *field.Min {
		return &ValidationError{
			Param:  name,
			Reason: ReasonOutOfRange,
			Detail: fmt.Sprintf("must be at least %g", *field.Min),
		}
	}
	if field.Max != nil && v > *field.Max {
		return &ValidationError{
			Param:  name,
			Reason: ReasonOutOfRange,
			Detail: fmt.Sprintf("must be at most %g", *field.Max),
		}
	}
	return nil
}
