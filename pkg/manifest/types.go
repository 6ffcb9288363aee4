package manifest

import (
	"github.com/yumet023/proplate/pkg/expr"
	"github.com/yumet023/proplate/pkg/types"
)

// Manifest describes a template: its variables, file rules and hooks
type Manifest struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description,omitempty"`
	Requires    string         `yaml:"requires,omitempty"`
	Variables   []VariableSpec `yaml:"variables,omitempty"`
	Rules       []FileRule     `yaml:"rules,omitempty"`
	Exclude     []string       `yaml:"exclude,omitempty"`
	Literal     []string       `yaml:"literal,omitempty"`
	Hooks       []Hook         `yaml:"hooks,omitempty"`
}

// VariableSpec declares one template variable
type VariableSpec struct {
	Name   string     `yaml:"name"`
	Kind   types.Kind `yaml:"kind,omitempty"`
	Prompt string     `yaml:"prompt,omitempty"`
	// Default is a string for string and choice variables and a bool for booleans
	Default interface{} `yaml:"default,omitempty"`
	Pattern string      `yaml:"pattern,omitempty"`
	Options []string    `yaml:"options,omitempty"`
}

// HasDefault reports whether the declaration carries a default value
func (v VariableSpec) HasDefault() bool {
	return v.Default != nil
}

// DefaultValue returns the default as a typed value
func (v VariableSpec) DefaultValue() (types.Value, bool) {
	switch d := v.Default.(type) {
	case bool:
		if v.Kind == types.KindBoolean {
			return types.BoolValue(d), true
		}
	case string:
		switch v.Kind {
		case types.KindString:
			return types.StringValue(d), true
		case types.KindChoice:
			return types.ChoiceValue(d), true
		}
	}
	return types.Value{}, false
}

// Label is the prompt text, falling back to the variable name
func (v VariableSpec) Label() string {
	if v.Prompt != "" {
		return v.Prompt
	}
	return v.Name
}

// FileRule conditions and renames the entries matched by Glob
type FileRule struct {
	Glob   string `yaml:"glob"`
	When   string `yaml:"when,omitempty"`
	Rename string `yaml:"rename,omitempty"`
}

// Condition parses When. Manifests returned by Parse always have valid conditions.
func (r FileRule) Condition() (*expr.Expr, error) {
	return expr.Parse(r.When)
}

// Hook is a command run before commit or after it
type Hook struct {
	Phase   types.Phase `yaml:"phase"`
	Run     string      `yaml:"run"`
	Workdir string      `yaml:"workdir,omitempty"`
	Shell   bool        `yaml:"shell,omitempty"`
}

// Variable returns the declaration named name
func (m *Manifest) Variable(name string) (VariableSpec, bool) {
	for _, v := range m.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return VariableSpec{}, false
}

// Decls returns the declarations in the shape the condition checker wants
func (m *Manifest) Decls() map[string]expr.Decl {
	decls := make(map[string]expr.Decl, len(m.Variables))
	for _, v := range m.Variables {
		decls[v.Name] = expr.Decl{Kind: v.Kind, Options: v.Options}
	}
	return decls
}

// HooksFor returns the hooks of one phase in declaration order
func (m *Manifest) HooksFor(phase types.Phase) []Hook {
	var out []Hook
	for _, h := range m.Hooks {
		if h.Phase == phase {
			out = append(out, h)
		}
	}
	return out
}
