package ui

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/templates"
)

// Templates lists catalog entries with their descriptions
func (p *Printer) Templates(summaries []templates.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(p.out, "No templates available")
		return
	}

	if p.styled {
		rows := [][]string{{"Template", "Description", "Variables"}}
		for _, s := range summaries {
			desc := s.Description
			if s.Err != nil {
				desc = errorMessageStyle.Render("broken: " + Describe(s.Err))
			}
			rows = append(rows, []string{keyStyle.Sprint(s.Name), desc, fmt.Sprint(s.Variables)})
		}
		if table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender(); err == nil {
			fmt.Fprintln(p.out, table)
			return
		}
	}

	width := 0
	for _, s := range summaries {
		if len(s.Name) > width {
			width = len(s.Name)
		}
	}
	for _, s := range summaries {
		desc := s.Description
		if s.Err != nil {
			desc = "broken: " + Describe(s.Err)
		}
		fmt.Fprintf(p.out, "%-*s  %s\n", width, s.Name, desc)
	}
}

// Template describes one template: its variables, rules, hooks and README
func (p *Printer) Template(t *templates.Template) {
	m := t.Manifest
	p.Title(m.ID)
	if m.Description != "" {
		fmt.Fprintf(p.out, "%s\n\n", m.Description)
	}
	fmt.Fprintf(p.out, "%s %s (%s)\n", p.key("Source:"), t.Source, t.ID)
	if m.Requires != "" {
		fmt.Fprintf(p.out, "%s %s\n", p.key("Requires:"), m.Requires)
	}

	if len(m.Variables) > 0 {
		fmt.Fprintf(p.out, "\n%s\n", p.key("Variables:"))
		for _, v := range m.Variables {
			fmt.Fprintf(p.out, "  %s\n", describeVariable(v))
		}
	}
	if len(m.Rules) > 0 {
		fmt.Fprintf(p.out, "\n%s\n", p.key("Rules:"))
		for _, r := range m.Rules {
			fmt.Fprintf(p.out, "  %s\n", describeRule(r))
		}
	}
	if len(m.Hooks) > 0 {
		fmt.Fprintf(p.out, "\n%s\n", p.key("Hooks:"))
		for _, h := range m.Hooks {
			line := fmt.Sprintf("  %-4s %s", h.Phase, h.Run)
			if h.Workdir != "" {
				line += fmt.Sprintf(" (in %s)", h.Workdir)
			}
			fmt.Fprintln(p.out, line)
		}
	}

	if readme, ok := t.Readme(); ok {
		fmt.Fprintln(p.out)
		fmt.Fprint(p.out, p.Markdown(string(readme)))
	}
}

func (p *Printer) key(s string) string {
	if p.styled {
		return keyStyle.Sprint(s)
	}
	return s
}

func describeVariable(v manifest.VariableSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", v.Name, v.Kind)
	if len(v.Options) > 0 {
		fmt.Fprintf(&b, " one of %s", strings.Join(v.Options, ", "))
	}
	if def, ok := v.DefaultValue(); ok {
		fmt.Fprintf(&b, " default %q", def.String())
	} else {
		b.WriteString(" required")
	}
	if v.Pattern != "" {
		fmt.Fprintf(&b, " matching %s", v.Pattern)
	}
	if v.Prompt != "" {
		fmt.Fprintf(&b, ": %s", v.Prompt)
	}
	return b.String()
}

func describeRule(r manifest.FileRule) string {
	line := r.Glob
	if r.When != "" {
		line += " when " + r.When
	}
	if r.Rename != "" {
		line += " -> " + r.Rename
	}
	return line
}
