package variables

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/types"
)

// MaxAttempts bounds how often ConsolePrompter re-asks after invalid input
const MaxAttempts = 3

// ConsolePrompter reads answers line by line. It suits pipes and tests.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter reads from in and writes questions to out
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

// Prompt implements Prompter. Choices accept the option or its 1-based number.
func (p *ConsolePrompter) Prompt(ctx context.Context, spec manifest.VariableSpec) (interface{}, error) {
	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCancelled, "prompt cancelled")
		}

		fmt.Fprint(p.out, question(spec))
		line, err := p.in.ReadString('\n')
		if err != nil && !(stderrors.Is(err, io.EOF) && line != "") {
			return nil, errors.Wrapf(err, errors.ErrCancelled, "no answer for %q", spec.Name)
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			lastErr = invalid(spec.Name, "a value is required")
			fmt.Fprintln(p.out, "  a value is required")
			continue
		}

		raw := interface{}(answer)
		if spec.Kind == types.KindChoice {
			if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(spec.Options) {
				raw = spec.Options[n-1]
			}
		}
		if _, err := Coerce(spec, raw); err != nil {
			lastErr = err
			fmt.Fprintf(p.out, "  %s\n", errors.GetDetailString(err, "reason"))
			continue
		}
		return raw, nil
	}
	return nil, lastErr
}

func question(spec manifest.VariableSpec) string {
	switch spec.Kind {
	case types.KindBoolean:
		return spec.Label() + " (y/n): "
	case types.KindChoice:
		var b strings.Builder
		b.WriteString(spec.Label())
		b.WriteString("\n")
		for i, o := range spec.Options {
			fmt.Fprintf(&b, "  %d) %s\n", i+1, o)
		}
		b.WriteString("> ")
		return b.String()
	default:
		return spec.Label() + ": "
	}
}
