package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kr/text"
	"github.com/pterm/pterm"

	"github.com/yumet023/proplate/pkg/types"
)

// Plan prints every planned action, skips included
func (p *Printer) Plan(plan *types.Plan) {
	if plan == nil || plan.Len() == 0 {
		fmt.Fprintln(p.out, "Nothing to generate")
		return
	}

	rows := make([][]string, 0, plan.Len()+1)
	rows = append(rows, []string{"Action", "Source", "Destination", "Detail"})
	for _, a := range plan.Actions() {
		rows = append(rows, []string{string(a.Kind), a.Source, a.Dest, detail(a)})
	}

	if p.styled {
		for i := 1; i < len(rows); i++ {
			kind := types.ActionKind(rows[i][0])
			rows[i][0] = actionStyle(kind).Sprint(rows[i][0])
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
		if err == nil {
			fmt.Fprintln(p.out, table)
			p.planSummary(plan)
			return
		}
	}

	for _, row := range rows[1:] {
		line := fmt.Sprintf("%-6s %s", row[0], row[1])
		if row[2] != "" && row[2] != row[1] {
			line += " -> " + row[2]
		}
		if row[3] != "" {
			line += " (" + row[3] + ")"
		}
		fmt.Fprintln(p.out, strings.TrimRight(line, " "))
	}
	p.planSummary(plan)
}

func (p *Printer) planSummary(plan *types.Plan) {
	var total int64
	for _, a := range plan.Actions() {
		if a.Kind == types.ActionCopy || a.Kind == types.ActionRender {
			total += a.Size
		}
	}
	fmt.Fprintf(p.out, "\n%d to render, %d to copy, %d directories, %d skipped, %s\n",
		plan.Count(types.ActionRender),
		plan.Count(types.ActionCopy),
		plan.Count(types.ActionMkdir),
		plan.Count(types.ActionSkip),
		humanize.Bytes(uint64(total)))
}

func detail(a types.PlannedAction) string {
	switch a.Kind {
	case types.ActionSkip:
		return a.Reason
	case types.ActionMkdir:
		return ""
	}
	size := humanize.Bytes(uint64(a.Size))
	if a.Reason != "" {
		return size + ", " + a.Reason
	}
	return size
}

// Hooks prints each hook with its exit status and captured output
func (p *Printer) Hooks(results []types.HookResult) {
	for _, h := range results {
		status := "ok"
		if !h.Succeeded() {
			status = fmt.Sprintf("exit %d", h.ExitCode)
		}
		line := fmt.Sprintf("%s hook %d: %s (%s, %s)", h.Phase, h.Index, h.Command, status,
			h.Duration.Round(time.Millisecond))
		switch {
		case !p.styled:
			fmt.Fprintln(p.out, line)
		case h.Succeeded():
			fmt.Fprint(p.out, pterm.Success.Sprintln(line))
		default:
			fmt.Fprint(p.out, pterm.Error.Sprintln(line))
		}

		for _, stream := range []string{h.Stdout, h.Stderr} {
			stream = strings.TrimRight(stream, "\n")
			if stream == "" {
				continue
			}
			out := text.Indent(stream+"\n", "    ")
			if p.styled {
				out = mutedStyle.Sprint(out)
			}
			fmt.Fprint(p.out, out)
		}
	}
}

// Result summarizes a finished request
func (p *Printer) Result(res *types.Result) {
	if res == nil {
		return
	}
	switch res.Status {
	case types.StatusPlanned:
		p.Title(fmt.Sprintf("Plan for %s in %s", res.TemplateID, res.TargetDir))
		p.Plan(res.Plan)
		return
	case types.StatusFailed:
		p.Hooks(res.Hooks)
		return
	}

	p.Hooks(res.Hooks)
	if res.Status == types.StatusPartial {
		p.Warn("generated %d paths in %s but post hooks failed", len(res.Created), res.TargetDir)
		return
	}
	p.Success("Generated %s in %s (%s)", res.TemplateID, res.TargetDir,
		pluralize(len(res.Created), "path"))
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
