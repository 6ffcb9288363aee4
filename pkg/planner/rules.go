package planner

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/moby/patternmatcher"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/expr"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/types"
)

type globMatcher interface {
	Match(name string) bool
}

type compiledRule struct {
	index    int
	glob     string
	fullPath bool
	matcher  globMatcher
	cond     *expr.Expr
	rename   string
}

func (r compiledRule) matches(rel string) bool {
	if r.fullPath {
		return r.matcher.Match(rel)
	}
	return r.matcher.Match(path.Base(rel))
}

func compileRules(m *manifest.Manifest) ([]compiledRule, error) {
	rules := make([]compiledRule, 0, len(m.Rules))
	for i, r := range m.Rules {
		g, err := zglob.New(r.Glob)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestInvalid, "rule %d: invalid glob %q", i+1, r.Glob)
		}
		cond, err := r.Condition()
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestInvalid, "rule %d: invalid condition", i+1)
		}
		rules = append(rules, compiledRule{
			index:    i,
			glob:     r.Glob,
			fullPath: strings.Contains(r.Glob, "/"),
			matcher:  g,
			cond:     cond,
			rename:   r.Rename,
		})
	}
	return rules, nil
}

// ruleOutcome is the combined effect of every rule matching one entry
type ruleOutcome struct {
	skip   bool
	reason string
	rename string
}

func applyRules(rules []compiledRule, rel string, vars types.Variables) (ruleOutcome, error) {
	var out ruleOutcome
	for _, r := range rules {
		if !r.matches(rel) {
			continue
		}
		ok, err := r.cond.Eval(vars)
		if err != nil {
			return out, errors.Wrapf(err, errors.ErrInternal, "rule %d: evaluating %q", r.index+1, r.cond)
		}
		if !ok {
			out.skip = true
			out.reason = fmt.Sprintf("rule %d: condition false", r.index+1)
			return out, nil
		}
		if r.rename != "" {
			out.rename = r.rename
		}
	}
	return out, nil
}

// listMatcher wraps the manifest's exclude and literal lists, which use
// .dockerignore semantics
type listMatcher struct {
	pm *patternmatcher.PatternMatcher
}

func newListMatcher(patterns []string) (*listMatcher, error) {
	if len(patterns) == 0 {
		return &listMatcher{}, nil
	}
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrManifestInvalid, "invalid pattern list")
	}
	return &listMatcher{pm: pm}, nil
}

func (l *listMatcher) match(rel string) bool {
	if l.pm == nil {
		return false
	}
	ok, err := l.pm.MatchesOrParentMatches(filepath.FromSlash(rel))
	return err == nil && ok
}
