// Package render substitutes {{ name }} placeholders in file contents and paths.
package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/types"
)

// Opener starts every placeholder. Resolved values may not contain it.
const Opener = "{{"

const placeholderExpr = `\{\{\s*([A-Za-z_][A-Za-z0-9_-]*)((?:\s*\|\s*[A-Za-z_][A-Za-z0-9_]*)*)\s*\}\}`

// escapedPattern also captures the run of backslashes before a placeholder
var (
	placeholderPattern = regexp.MustCompile(placeholderExpr)
	escapedPattern     = regexp.MustCompile(`(\\*)` + placeholderExpr)
)

// Filter transforms a substituted value
type Filter func(string) string

var filters = map[string]Filter{
	"upper":  strings.ToUpper,
	"lower":  strings.ToLower,
	"title":  func(s string) string { return cases.Title(language.English).String(s) },
	"snake":  strcase.ToSnake,
	"kebab":  strcase.ToKebab,
	"camel":  strcase.ToLowerCamel,
	"pascal": strcase.ToCamel,
}

// FilterNames returns the supported filter names
func FilterNames() []string {
	return []string{"camel", "kebab", "lower", "pascal", "snake", "title", "upper"}
}

// Placeholder is one parsed occurrence
type Placeholder struct {
	Raw     string
	Name    string
	Filters []string
}

// HasMarkers reports whether content contains at least one placeholder
func HasMarkers(content []byte) bool {
	return placeholderPattern.Match(content)
}

// HasMarkersString is HasMarkers for strings
func HasMarkersString(s string) bool {
	return placeholderPattern.MatchString(s)
}

// Scan returns every placeholder in s in order of appearance
func Scan(s string) []Placeholder {
	var out []Placeholder
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, parsePlaceholder(m))
	}
	return out
}

func parsePlaceholder(m []string) Placeholder {
	p := Placeholder{Raw: m[0], Name: m[1]}
	for _, f := range strings.Split(m[2], "|") {
		if f = strings.TrimSpace(f); f != "" {
			p.Filters = append(p.Filters, f)
		}
	}
	return p
}

// Renderer substitutes resolved variables into text
type Renderer struct {
	vars types.Variables
}

// New returns a renderer bound to vars
func New(vars types.Variables) *Renderer {
	return &Renderer{vars: vars}
}

// Render substitutes every placeholder in content in a single pass.
// path only labels errors.
//
// A placeholder preceded by an odd number of backslashes is escaped: one
// backslash is dropped and the placeholder is copied verbatim. An even
// run of backslashes is kept and the placeholder is substituted.
// Substituted values that join with neighbouring text into a new
// placeholder fail with ErrUnresolvedPlaceholder.
func (r *Renderer) Render(content []byte, path string) ([]byte, error) {
	var (
		out      bytes.Buffer
		verbatim [][2]int
		last     int
	)
	for _, m := range escapedPattern.FindAllSubmatchIndex(content, -1) {
		out.Write(content[last:m[0]])
		last = m[1]

		slashes := content[m[2]:m[3]]
		raw := content[m[3]:m[1]]
		if len(slashes)%2 == 1 {
			out.Write(slashes[:len(slashes)-1])
			start := out.Len()
			out.Write(raw)
			verbatim = append(verbatim, [2]int{start, out.Len()})
			continue
		}

		out.Write(slashes)
		p := parsePlaceholder([]string{string(raw), string(content[m[4]:m[5]]), string(content[m[6]:m[7]])})
		value, err := r.resolve(p, path)
		if err != nil {
			return nil, err
		}
		out.WriteString(value)
	}
	out.Write(content[last:])

	result := out.Bytes()
	if formed := formedMarker(result, verbatim); formed != "" {
		return nil, errors.Newf(errors.ErrUnresolvedPlaceholder,
			"substitution formed a new placeholder %s in %s", formed, path).
			WithDetail("placeholder", formed).
			WithDetail("path", path)
	}
	return result, nil
}

// formedMarker returns the first placeholder in out that is not one of the
// escaped spans copied verbatim
func formedMarker(out []byte, verbatim [][2]int) string {
	for _, loc := range placeholderPattern.FindAllIndex(out, -1) {
		escaped := false
		for _, v := range verbatim {
			if v[0] == loc[0] && v[1] == loc[1] {
				escaped = true
				break
			}
		}
		if !escaped {
			return string(out[loc[0]:loc[1]])
		}
	}
	return ""
}

// RenderString is Render for strings
func (r *Renderer) RenderString(s, path string) (string, error) {
	out, err := r.Render([]byte(s), path)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RenderName renders a single path segment. The result must stay one
// segment, so a value carrying a path separator fails with ErrUnsafePath.
func (r *Renderer) RenderName(name, path string) (string, error) {
	if !HasMarkersString(name) {
		return name, nil
	}
	rendered, err := r.RenderString(name, path)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(rendered, `/\`) {
		return "", errors.Newf(errors.ErrUnsafePath,
			"name %q of %s renders to %q, which contains a path separator", name, path, rendered).
			WithDetail("path", path).
			WithDetail("rendered", rendered)
	}
	return rendered, nil
}

func (r *Renderer) resolve(p Placeholder, path string) (string, error) {
	v, ok := r.vars.Get(p.Name)
	if !ok {
		return "", errors.Newf(errors.ErrUnresolvedPlaceholder,
			"unresolved placeholder %s in %s", p.Raw, path).
			WithDetail("placeholder", p.Name).
			WithDetail("path", path)
	}
	value := v.String()
	for _, name := range p.Filters {
		f, ok := filters[name]
		if !ok {
			return "", errors.Newf(errors.ErrUnresolvedPlaceholder,
				"unknown filter %q in %s in %s", name, p.Raw, path).
				WithDetail("placeholder", p.Name).
				WithDetail("filter", name).
				WithDetail("path", path)
		}
		value = f(value)
	}
	return value, nil
}
