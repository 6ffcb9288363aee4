// Package ui renders proplate's terminal output: plans, results, errors
// and template listings, styled for terminals and plain for pipes.
package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/kr/text"
	"github.com/pterm/pterm"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/types"
)

// DefaultWidth is used to wrap markdown when the terminal width is unknown
const DefaultWidth = 80

// Printer writes user-facing output. Regular output goes to out and
// errors and warnings go to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	styled bool
	width  int
}

// NewPrinter creates a printer. FormatAuto is resolved against out.
func NewPrinter(out, errOut io.Writer, format Format) *Printer {
	return &Printer{
		out:    out,
		errOut: errOut,
		styled: Resolve(format, out) == FormatTerminal,
		width:  DefaultWidth,
	}
}

// Styled reports whether output carries colors
func (p *Printer) Styled() bool { return p.styled }

// Out is the writer regular output goes to
func (p *Printer) Out() io.Writer { return p.out }

func (p *Printer) Title(s string) {
	if p.styled {
		fmt.Fprint(p.out, pterm.DefaultSection.Sprint(s))
		return
	}
	fmt.Fprintf(p.out, "%s\n\n", s)
}

func (p *Printer) Step(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if p.styled {
		fmt.Fprint(p.out, pterm.Info.Sprintln(msg))
		return
	}
	fmt.Fprintf(p.out, "- %s\n", msg)
}

func (p *Printer) Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if p.styled {
		fmt.Fprint(p.out, pterm.Success.Sprintln(msg))
		return
	}
	fmt.Fprintf(p.out, "%s\n", msg)
}

func (p *Printer) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if p.styled {
		fmt.Fprintf(p.errOut, "%s %s\n", warnLabelStyle.Render("Warning"), msg)
		return
	}
	fmt.Fprintf(p.errOut, "Warning: %s\n", msg)
}

// Error prints err in the form "Error [Stage/CODE]: message". An empty
// stage prints just the code.
func (p *Printer) Error(stage types.Stage, err error) {
	if err == nil {
		return
	}
	label := fmt.Sprintf("Error [%s]", string(errors.GetErrorCode(err)))
	if stage != "" {
		label = fmt.Sprintf("Error [%s/%s]", stage, errors.GetErrorCode(err))
	}
	msg := Describe(err)

	if p.styled {
		fmt.Fprintf(p.errOut, "%s %s\n", errorLabelStyle.Render(label), errorMessageStyle.Render(msg))
	} else {
		fmt.Fprintf(p.errOut, "%s: %s\n", label, msg)
	}

	if stderr := errors.GetDetailString(err, "stderr"); stderr != "" {
		fmt.Fprint(p.errOut, text.Indent(strings.TrimRight(stderr, "\n")+"\n", "    "))
	}
}

// Describe returns the message of the outermost coded error, followed by
// whatever it wraps
func Describe(err error) string {
	var pe *errors.ProplateError
	if !stderrors.As(err, &pe) {
		return err.Error()
	}
	if pe.Wrapped == nil {
		return pe.Message
	}
	return pe.Message + ": " + Describe(pe.Wrapped)
}

// Markdown renders md for the terminal, or returns it unchanged when
// output is plain or glamour fails
func (p *Printer) Markdown(md string) string {
	if !p.styled {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(p.width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
