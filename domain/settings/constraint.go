package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Constraint defines a validation rule for a setting.
type Constraint struct {
	// Type is the constraint type (min, max, min_length, max_length, pattern, etc.)
	Type ConstraintType `yaml:"type" json:"type"`

	// Value is the constraint parameter (number, regex pattern, list).
	Value any `yaml:"value" json:"value"`

	// Message is the custom error message (optional).
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// ConstraintType identifies the type of constraint.
type ConstraintType string

const (
	ConstraintMin       ConstraintType = "min"
	ConstraintMax       ConstraintType = "max"
	ConstraintMinLength ConstraintType = "min_length"
	ConstraintMaxLength ConstraintType = "max_length"
	ConstraintPattern   ConstraintType = "pattern"
	ConstraintNotEmpty  ConstraintType = "not_empty"
	ConstraintOneOf     ConstraintType = "one_of"
)

// ConstraintError is a single validation failure.
type ConstraintError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
	Message    string `json:"message"`
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects the failures for one setting value.
type ValidationError struct {
	Setting string            `json:"setting"`
	Errors  []ConstraintError `json:"errors"`
}

func (e *ValidationError) add(ce ConstraintError) {
	e.Errors = append(e.Errors, ce)
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ce := range e.Errors {
		msgs = append(msgs, ce.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ValidateConstraint validates a value against a single constraint.
// Constraints that do not apply to the value's type pass.
func ValidateConstraint(field string, value any, c Constraint) *ConstraintError {
	switch c.Type {
	case ConstraintMin:
		return checkBound(field, value, c, func(v, bound float64) bool { return v >= bound }, "must be at least %v")
	case ConstraintMax:
		return checkBound(field, value, c, func(v, bound float64) bool { return v <= bound }, "must be at most %v")
	case ConstraintMinLength:
		return checkLength(field, value, c, func(n, bound int) bool { return n >= bound }, "must be at least %d characters")
	case ConstraintMaxLength:
		return checkLength(field, value, c, func(n, bound int) bool { return n <= bound }, "must be at most %d characters")
	case ConstraintPattern:
		return checkPattern(field, value, c)
	case ConstraintNotEmpty:
		str, ok := value.(string)
		if !ok || strings.TrimSpace(str) != "" {
			return nil
		}
		return failure(field, c, value, "must not be empty")
	case ConstraintOneOf:
		return checkOneOf(field, value, c)
	default:
		return nil
	}
}

// CheckConstraint reports a constraint whose parameter cannot be applied:
// an unknown type, a non-numeric bound, a negative length, a pattern that
// does not compile, or an empty one_of list.
func CheckConstraint(c Constraint) error {
	switch c.Type {
	case ConstraintMin, ConstraintMax:
		if _, isString := c.Value.(string); isString {
			return fmt.Errorf("%s: bound must be a number, got %q", c.Type, c.Value)
		}
		if _, err := toFloat64(c.Value); err != nil {
			return fmt.Errorf("%s: bound must be a number, got %T", c.Type, c.Value)
		}
	case ConstraintMinLength, ConstraintMaxLength:
		n, ok := toInt64(c.Value)
		if !ok || n < 0 {
			return fmt.Errorf("%s: length must be a non-negative integer, got %v", c.Type, c.Value)
		}
	case ConstraintPattern:
		pattern, ok := c.Value.(string)
		if !ok {
			return fmt.Errorf("pattern: expected a string, got %T", c.Value)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("pattern: %w", err)
		}
	case ConstraintOneOf:
		switch vals := c.Value.(type) {
		case []any:
			if len(vals) == 0 {
				return errors.New("one_of: list is empty")
			}
		case []string:
			if len(vals) == 0 {
				return errors.New("one_of: list is empty")
			}
		default:
			return fmt.Errorf("one_of: expected a list, got %T", c.Value)
		}
	case ConstraintNotEmpty:
	default:
		return fmt.Errorf("unknown constraint %q", c.Type)
	}
	return nil
}

func checkBound(field string, value any, c Constraint, ok func(v, bound float64) bool, format string) *ConstraintError {
	bound, err := toFloat64(c.Value)
	if err != nil {
		return failure(field, c, value, "has an invalid bound")
	}
	v, err := toFloat64(value)
	if err != nil {
		return nil
	}
	if ok(v, bound) {
		return nil
	}
	return failure(field, c, value, fmt.Sprintf(format, c.Value))
}

func checkLength(field string, value any, c Constraint, ok func(n, bound int) bool, format string) *ConstraintError {
	bound, isInt := toInt64(c.Value)
	if !isInt {
		return failure(field, c, value, "has an invalid length bound")
	}
	str, isString := value.(string)
	if !isString {
		return nil
	}
	n := len([]rune(str))
	if ok(n, int(bound)) {
		return nil
	}
	return failure(field, c, n, fmt.Sprintf(format, bound))
}

func checkPattern(field string, value any, c Constraint) *ConstraintError {
	str, ok := value.(string)
	if !ok {
		return nil
	}
	pattern, ok := c.Value.(string)
	if !ok {
		return failure(field, c, value, "has an invalid pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return failure(field, c, value, "has an invalid pattern")
	}
	if re.MatchString(str) {
		return nil
	}
	return failure(field, c, value, "does not match required pattern")
}

func checkOneOf(field string, value any, c Constraint) *ConstraintError {
	var allowed []any
	switch vals := c.Value.(type) {
	case []any:
		allowed = vals
	case []string:
		for _, v := range vals {
			allowed = append(allowed, v)
		}
	default:
		return nil
	}

	got := fmt.Sprint(value)
	options := make([]string, 0, len(allowed))
	for _, a := range allowed {
		s := fmt.Sprint(a)
		if s == got {
			return nil
		}
		options = append(options, s)
	}
	return failure(field, c, value, "must be one of: "+strings.Join(options, ", "))
}

func failure(field string, c Constraint, value any, msg string) *ConstraintError {
	if c.Message != "" {
		msg = c.Message
	}
	return &ConstraintError{Field: field, Constraint: string(c.Type), Value: value, Message: msg}
}

// toFloat64 converts numeric values to float64.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

// toInt64 converts integral values to int64. Floats are accepted only when
// they carry no fractional part, which is how JSON and YAML decode integers.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	default:
		return 0, false
	}
}

// floatToInt64 rejects 2^63 explicitly: float64(math.MaxInt64) rounds up to
// it, and converting it wraps to math.MinInt64.
func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

// plainNumbers replaces json.Number values, including nested ones, with
// int64 when integral and float64 otherwise.
func plainNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = plainNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plainNumbers(item)
		}
		return out
	default:
		return v
	}
}
