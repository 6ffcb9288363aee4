package variables

import (
	"context"
	"sort"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/types"
)

// Prompter asks the user for a value. Implementations return an error with
// code CANCELLED when the user aborts.
type Prompter interface {
	Prompt(ctx context.Context, spec manifest.VariableSpec) (interface{}, error)
}

// Resolver resolves the variables of one manifest
type Resolver struct {
	prompter Prompter
}

// NewResolver returns a resolver. A nil prompter makes interactive mode
// behave like non-interactive mode.
func NewResolver(p Prompter) *Resolver {
	return &Resolver{prompter: p}
}

// Resolve walks the declarations in order, taking the override, then the
// default, then (interactive only) the prompter's answer
func (r *Resolver) Resolve(ctx context.Context, m *manifest.Manifest, overrides map[string]interface{}, interactive bool) (types.Variables, error) {
	logger := logging.GetLogger("variables")

	var unknown []string
	for name := range overrides {
		if _, ok := m.Variable(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return types.Variables{}, invalid(unknown[0], "not declared by template "+m.ID).
			WithDetail("unknown", unknown)
	}

	values := make(map[string]types.Value, len(m.Variables))
	for _, spec := range m.Variables {
		if err := ctx.Err(); err != nil {
			return types.Variables{}, errors.Wrap(err, errors.ErrCancelled, "variable resolution cancelled")
		}

		if raw, ok := overrides[spec.Name]; ok {
			val, err := Coerce(spec, raw)
			if err != nil {
				return types.Variables{}, err
			}
			values[spec.Name] = val
			logger.Debug().Str("name", spec.Name).Str("source", "override").Msg("Variable resolved")
			continue
		}

		if spec.HasDefault() {
			val, ok := spec.DefaultValue()
			if !ok {
				return types.Variables{}, invalid(spec.Name, "default does not match its kind")
			}
			if err := Validate(spec, val); err != nil {
				return types.Variables{}, err
			}
			values[spec.Name] = val
			logger.Debug().Str("name", spec.Name).Str("source", "default").Msg("Variable resolved")
			continue
		}

		if !interactive || r.prompter == nil {
			return types.Variables{}, errors.Newf(errors.ErrMissingRequiredVariable,
				"variable %q is required", spec.Name).
				WithDetail("name", spec.Name)
		}

		raw, err := r.prompter.Prompt(ctx, spec)
		if err != nil {
			return types.Variables{}, err
		}
		val, err := Coerce(spec, raw)
		if err != nil {
			return types.Variables{}, err
		}
		values[spec.Name] = val
		logger.Debug().Str("name", spec.Name).Str("source", "prompt").Msg("Variable resolved")
	}

	return types.NewVariables(values), nil
}
