package types

import (
	"fmt"
	"io/fs"
)

// ActionKind names what a planned action does
type ActionKind string

const (
	ActionCopy   ActionKind = "copy"
	ActionRender ActionKind = "render"
	ActionSkip   ActionKind = "skip"
	ActionMkdir  ActionKind = "mkdir"
)

// PlannedAction is one step of a generation plan.
// Source is relative to the template root and Dest to the target root, both slash separated.
type PlannedAction struct {
	Kind   ActionKind
	Source string
	Dest   string
	Reason string
	Mode   fs.FileMode
	Size   int64
}

func (a PlannedAction) String() string {
	switch a.Kind {
	case ActionSkip:
		return fmt.Sprintf("skip %s (%s)", a.Source, a.Reason)
	case ActionMkdir:
		return fmt.Sprintf("mkdir %s", a.Dest)
	default:
		return fmt.Sprintf("%s %s -> %s", a.Kind, a.Source, a.Dest)
	}
}

// Writes reports whether the action produces something in the target
func (a PlannedAction) Writes() bool {
	return a.Kind != ActionSkip
}

// Plan is an ordered, read-only sequence of planned actions
type Plan struct {
	actions []PlannedAction
}

// NewPlan freezes actions into a plan
func NewPlan(actions []PlannedAction) *Plan {
	copied := make([]PlannedAction, len(actions))
	copy(copied, actions)
	return &Plan{actions: copied}
}

// Actions returns a copy of the planned actions
func (p *Plan) Actions() []PlannedAction {
	if p == nil {
		return nil
	}
	out := make([]PlannedAction, len(p.actions))
	copy(out, p.actions)
	return out
}

func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.actions)
}

// Outputs returns the destination paths the plan writes, in plan order
func (p *Plan) Outputs() []string {
	if p == nil {
		return nil
	}
	var out []string
	for _, a := range p.actions {
		if a.Writes() {
			out = append(out, a.Dest)
		}
	}
	return out
}

// Count returns how many actions have the given kind
func (p *Plan) Count(kind ActionKind) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, a := range p.actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}
