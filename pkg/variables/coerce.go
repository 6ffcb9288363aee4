package variables

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/render"
	"github.com/yumet023/proplate/pkg/types"
)

func invalid(name, reason string) *errors.ProplateError {
	return errors.Newf(errors.ErrVariableValidation, "variable %q: %s", name, reason).
		WithDetail("name", name).
		WithDetail("reason", reason)
}

// ParseBool accepts true/false, yes/no and 1/0 in any case
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

// Coerce converts a raw value into a typed value for spec and validates it
func Coerce(spec manifest.VariableSpec, raw interface{}) (types.Value, error) {
	var val types.Value
	switch spec.Kind {
	case types.KindBoolean:
		switch r := raw.(type) {
		case bool:
			val = types.BoolValue(r)
		case string:
			b, ok := ParseBool(r)
			if !ok {
				return types.Value{}, invalid(spec.Name, fmt.Sprintf("%q is not a boolean", r))
			}
			val = types.BoolValue(b)
		default:
			return types.Value{}, invalid(spec.Name, fmt.Sprintf("expected a boolean, got %T", raw))
		}
	case types.KindChoice:
		s, ok := raw.(string)
		if !ok {
			return types.Value{}, invalid(spec.Name, fmt.Sprintf("expected one of %s, got %T",
				strings.Join(spec.Options, ", "), raw))
		}
		val = types.ChoiceValue(s)
	default:
		s, ok := raw.(string)
		if !ok {
			return types.Value{}, invalid(spec.Name, fmt.Sprintf("expected a string, got %T", raw))
		}
		val = types.StringValue(s)
	}

	if err := Validate(spec, val); err != nil {
		return types.Value{}, err
	}
	return val, nil
}

// Validate checks a typed value against its declaration
func Validate(spec manifest.VariableSpec, val types.Value) error {
	if val.Kind() != spec.Kind {
		return invalid(spec.Name, fmt.Sprintf("expected a %s value, got %s", spec.Kind, val.Kind()))
	}
	s := val.String()
	if strings.Contains(s, render.Opener) {
		return invalid(spec.Name, fmt.Sprintf("value must not contain %q", render.Opener))
	}

	switch spec.Kind {
	case types.KindChoice:
		for _, o := range spec.Options {
			if o == s {
				return nil
			}
		}
		return invalid(spec.Name, fmt.Sprintf("%q is not one of %s", s, strings.Join(spec.Options, ", ")))
	case types.KindString:
		if spec.Pattern == "" {
			return nil
		}
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return invalid(spec.Name, fmt.Sprintf("invalid pattern %s", spec.Pattern))
		}
		if !re.MatchString(s) {
			return invalid(spec.Name, fmt.Sprintf("%q does not match %s", s, spec.Pattern))
		}
	}
	return nil
}
