package types

import "time"

// Stage is a state of the generation state machine
type Stage string

const (
	StageLoading            Stage = "Loading"
	StageResolvingVariables Stage = "ResolvingVariables"
	StagePlanning           Stage = "Planning"
	StageStagingWrite       Stage = "StagingWrite"
	StageCommittingPreHooks Stage = "CommittingPreHooks"
	StageCommitted          Stage = "Committed"
	StageRunningPostHooks   Stage = "RunningPostHooks"
	StageDone               Stage = "Done"
	StageFailed             Stage = "Failed"
)

// Phase selects when a hook runs
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Valid reports whether p is a known phase
func (p Phase) Valid() bool {
	return p == PhasePre || p == PhasePost
}

// HookResult records one executed hook
type HookResult struct {
	Index    int
	Phase    Phase
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Succeeded reports a zero exit
func (h HookResult) Succeeded() bool { return h.ExitCode == 0 }

// Status is the outcome of a generation request
type Status string

const (
	StatusSuccess Status = "success"
	// StatusPartial means files were committed but a post hook failed
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
	// StatusPlanned is the outcome of a dry run
	StatusPlanned Status = "planned"
)

// Result is the terminal record of a generation request
type Result struct {
	TemplateID string
	TargetDir  string
	Status     Status
	Stages     []Stage
	Plan       *Plan
	Variables  Variables
	// Created lists target-relative paths written on commit, in plan order
	Created   []string
	Hooks     []HookResult
	HookError error
}

// LastStage returns the most recent stage entered
func (r *Result) LastStage() Stage {
	if r == nil || len(r.Stages) == 0 {
		return ""
	}
	return r.Stages[len(r.Stages)-1]
}
