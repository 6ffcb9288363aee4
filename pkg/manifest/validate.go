package manifest

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/mattn/go-zglob"
	"github.com/moby/patternmatcher"

	"github.com/yumet023/proplate/pkg/expr"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/render"
	"github.com/yumet023/proplate/pkg/types"
)

// check runs the semantic validation that the schema cannot express and
// returns one message per problem
func check(m *Manifest, opts Options) []string {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(m.ID) == "" {
		add("id must not be blank")
	}

	seen := make(map[string]bool, len(m.Variables))
	for i, v := range m.Variables {
		where := fmt.Sprintf("variables[%d] %q", i, v.Name)
		if seen[v.Name] {
			add("%s: duplicate variable name", where)
		}
		seen[v.Name] = true
		for _, p := range checkVariable(v) {
			add("%s: %s", where, p)
		}
	}

	decls := m.Decls()
	for i, r := range m.Rules {
		where := fmt.Sprintf("rules[%d] %q", i, r.Glob)
		if _, err := zglob.New(r.Glob); err != nil {
			add("%s: invalid glob: %v", where, err)
		}
		cond, err := r.Condition()
		if err != nil {
			add("%s: %v", where, err)
		} else if err := cond.Check(decls); err != nil {
			add("%s: %v", where, err)
		}
		for _, p := range checkTemplated(r.Rename, decls) {
			add("%s: rename: %s", where, p)
		}
		if r.Rename != "" && path.IsAbs(r.Rename) {
			add("%s: rename must be relative", where)
		}
	}

	if _, err := patternmatcher.New(m.Exclude); err != nil {
		add("exclude: %v", err)
	}
	if _, err := patternmatcher.New(m.Literal); err != nil {
		add("literal: %v", err)
	}

	for i, h := range m.Hooks {
		where := fmt.Sprintf("hooks[%d]", i)
		if !h.Phase.Valid() {
			add("%s: unknown phase %q", where, h.Phase)
		}
		if strings.TrimSpace(h.Run) == "" {
			add("%s: empty command", where)
		}
		for _, p := range checkTemplated(h.Run, decls) {
			add("%s: run: %s", where, p)
		}
		for _, p := range checkTemplated(h.Workdir, decls) {
			add("%s: workdir: %s", where, p)
		}
		if h.Workdir != "" && path.IsAbs(h.Workdir) {
			add("%s: workdir must be relative", where)
		}
	}

	if p := checkRequires(m.Requires, opts.Version); p != "" {
		add("requires: %s", p)
	}
	return problems
}

func checkVariable(v VariableSpec) []string {
	var problems []string
	if !v.Kind.Valid() {
		return []string{fmt.Sprintf("unknown kind %q", v.Kind)}
	}

	if v.Default != nil {
		if _, ok := v.DefaultValue(); !ok {
			problems = append(problems, fmt.Sprintf("default %v does not match kind %s", v.Default, v.Kind))
		}
		if s, ok := v.Default.(string); ok && strings.Contains(s, render.Opener) {
			problems = append(problems, "default must not contain placeholder markers")
		}
	}

	switch v.Kind {
	case types.KindChoice:
		if len(v.Options) == 0 {
			problems = append(problems, "choice requires at least one option")
		}
		opts := make(map[string]bool, len(v.Options))
		for _, o := range v.Options {
			if opts[o] {
				problems = append(problems, fmt.Sprintf("duplicate option %q", o))
			}
			opts[o] = true
		}
		if s, ok := v.Default.(string); ok && len(v.Options) > 0 && !opts[s] {
			problems = append(problems, fmt.Sprintf("default %q is not one of the options", s))
		}
		if v.Pattern != "" {
			problems = append(problems, "pattern applies to string variables only")
		}
	case types.KindBoolean:
		if len(v.Options) > 0 {
			problems = append(problems, "options apply to choice variables only")
		}
		if v.Pattern != "" {
			problems = append(problems, "pattern applies to string variables only")
		}
	case types.KindString:
		if len(v.Options) > 0 {
			problems = append(problems, "options apply to choice variables only")
		}
		if v.Pattern != "" {
			re, err := regexp.Compile(v.Pattern)
			if err != nil {
				problems = append(problems, fmt.Sprintf("invalid pattern: %v", err))
			} else if s, ok := v.Default.(string); ok && !re.MatchString(s) {
				problems = append(problems, fmt.Sprintf("default %q does not match pattern %s", s, v.Pattern))
			}
		}
	}
	return problems
}

// checkTemplated verifies that every placeholder in s names a declared
// variable and only known filters
func checkTemplated(s string, decls map[string]expr.Decl) []string {
	if s == "" {
		return nil
	}
	known := make(map[string]bool)
	for _, f := range render.FilterNames() {
		known[f] = true
	}

	var problems []string
	for _, p := range render.Scan(s) {
		if _, ok := decls[p.Name]; !ok {
			problems = append(problems, fmt.Sprintf("undeclared variable %q", p.Name))
		}
		for _, f := range p.Filters {
			if !known[f] {
				problems = append(problems, fmt.Sprintf("unknown filter %q", f))
			}
		}
	}
	return problems
}

func checkRequires(constraint, version string) string {
	if constraint == "" {
		return ""
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Sprintf("invalid constraint %q: %v", constraint, err)
	}
	if version == "" {
		return ""
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		logger := logging.GetLogger("manifest")
		logger.Debug().
			Str("version", version).
			Msg("Running version is not semver, skipping requires check")
		return ""
	}
	if ok, errs := c.Validate(v); !ok {
		reason := "not satisfied"
		if len(errs) > 0 {
			reason = errs[0].Error()
		}
		return fmt.Sprintf("proplate %s does not satisfy %q: %s", v, constraint, reason)
	}
	return ""
}
