package ui

import (
	"context"

	"github.com/pterm/pterm"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/types"
	"github.com/yumet023/proplate/pkg/variables"
)

// TerminalPrompter asks for variables with pterm's interactive inputs. It
// needs a TTY; use variables.ConsolePrompter otherwise.
type TerminalPrompter struct{}

// NewTerminalPrompter creates a prompter bound to the process terminal
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// Prompt implements variables.Prompter. Invalid text answers are reported
// and asked again, up to variables.MaxAttempts times.
func (p *TerminalPrompter) Prompt(ctx context.Context, spec manifest.VariableSpec) (interface{}, error) {
	var lastErr error
	for attempt := 0; attempt < variables.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCancelled, "prompt cancelled")
		}

		answer, err := p.ask(spec)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCancelled, "no answer for %q", spec.Name)
		}
		if _, err := variables.Coerce(spec, answer); err != nil {
			lastErr = err
			pterm.Warning.Println(errors.GetDetailString(err, "reason"))
			continue
		}
		return answer, nil
	}
	return nil, lastErr
}

func (p *TerminalPrompter) ask(spec manifest.VariableSpec) (interface{}, error) {
	switch spec.Kind {
	case types.KindBoolean:
		b, err := pterm.DefaultInteractiveConfirm.Show(spec.Label())
		return b, err
	case types.KindChoice:
		s, err := pterm.DefaultInteractiveSelect.
			WithOptions(spec.Options).
			Show(spec.Label())
		return s, err
	default:
		s, err := pterm.DefaultInteractiveTextInput.Show(spec.Label())
		return s, err
	}
}
