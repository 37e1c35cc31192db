// Package agent implements the per-agent lifecycle controller: a state
// machine that drives one agent through planning, approval, execution,
// and synthesis, with suspend points for external confirmation and a
// cooperative stop between steps.
package agent

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/cadrehq/cadre/internal/completion"
	"github.com/cadrehq/cadre/internal/plan"
)

// Status represents an agent's position in its lifecycle.
type Status string

const (
	// StatusQueued indicates the agent has been submitted but not started.
	StatusQueued Status = "queued"

	// StatusPlanning indicates the planning completion call is in flight.
	StatusPlanning Status = "planning"

	// StatusPlanReady indicates the plan is parsed and awaiting
	// confirmation (bounded wait with auto-proceed).
	StatusPlanReady Status = "plan_ready"

	// StatusAwaitingClarification indicates clarifying questions have been
	// requested from the completion service.
	StatusAwaitingClarification Status = "awaiting_clarification"

	// StatusAwaitingApproval indicates the agent is suspended on the
	// approval gate (bounded wait with empty-answer fallback).
	StatusAwaitingApproval Status = "awaiting_approval"

	// StatusRunning indicates the step execution loop is active.
	StatusRunning Status = "running"

	// StatusPaused indicates Stop was requested and the loop exited
	// between steps. Remaining steps stay pending.
	StatusPaused Status = "paused"

	// StatusCompleted indicates the agent finished with a deliverable.
	StatusCompleted Status = "completed"

	// StatusError indicates the run aborted on a completion-service error.
	StatusError Status = "error"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Lifecycle phases. CurrentPhase only ever increases over a run.
const (
	PhaseQueued     = 0
	PhasePlan       = 1
	PhaseApprove    = 2
	PhaseExecute    = 3
	PhaseSynthesize = 4
)

// PhaseName returns the human-readable name for a phase number.
func PhaseName(phase int) string {
	switch phase {
	case PhasePlan:
		return "planning"
	case PhaseApprove:
		return "approval"
	case PhaseExecute:
		return "execution"
	case PhaseSynthesize:
		return "synthesis"
	default:
		return "queued"
	}
}

// validTransitions is the canonical source of truth for the agent status
// machine. Error is reachable from every non-terminal status.
var validTransitions = map[Status][]Status{
	StatusQueued:                {StatusPlanning, StatusError},
	StatusPlanning:              {StatusPlanReady, StatusError},
	StatusPlanReady:             {StatusAwaitingClarification, StatusAwaitingApproval, StatusError},
	StatusAwaitingClarification: {StatusAwaitingApproval, StatusError},
	StatusAwaitingApproval:      {StatusRunning, StatusError},
	StatusRunning:               {StatusPaused, StatusCompleted, StatusError},
	StatusPaused:                {},
	StatusCompleted:             {},
	StatusError:                 {},
}

// CanTransition checks whether a status change is allowed.
func CanTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Transition errors.
var (
	// ErrInvalidTransition indicates an attempted status change that is
	// not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTerminal indicates an operation on an agent in a terminal state.
	ErrTerminal = errors.New("agent is in a terminal state")

	// ErrPhaseRegression indicates an attempt to lower CurrentPhase.
	ErrPhaseRegression = errors.New("phase must not decrease")
)

// Deliverable is the final synthesized output of one agent's run,
// consumed by the cross-agent synthesis orchestrator.
type Deliverable struct {
	Content     string    `json:"content"`
	DataPoints  []string  `json:"data_points,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Spec describes an agent at submission time.
type Spec struct {
	// Name is a short display name used in insight attribution and the
	// synthesis snapshot.
	Name string

	// Objective is what the agent is trying to accomplish.
	Objective string

	// Description adds optional background for the planner.
	Description string

	// Tools lists tool names passed through to the completion service.
	Tools []string

	// MCPEndpoints lists external tool endpoints the agent may use.
	MCPEndpoints []string

	// Clarify requests 2-3 clarifying questions before approval.
	Clarify bool
}

// Record is the full state of one agent. It is owned by a Controller;
// external readers get defensive copies via Controller.Record.
type Record struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Objective           string               `json:"objective"`
	Description         string               `json:"description,omitempty"`
	Tools               []string             `json:"tools,omitempty"`
	MCPEndpoints        []string             `json:"mcp_endpoints,omitempty"`
	Clarify             bool                 `json:"clarify"`
	Status              Status               `json:"status"`
	CurrentPhase        int                  `json:"current_phase"`
	Plan                *plan.Plan           `json:"plan,omitempty"`
	ClarifyingQuestions []string             `json:"clarifying_questions,omitempty"`
	ClarifyingAnswers   map[string]string    `json:"clarifying_answers,omitempty"`
	History             []completion.Message `json:"history,omitempty"`
	HolisticInsights    []string             `json:"holistic_insights,omitempty"`
	Deliverable         *Deliverable         `json:"deliverable,omitempty"`
	ErrorMessage        string               `json:"error_message,omitempty"`
}

// NewRecord creates a queued Record from a Spec.
func NewRecord(spec Spec) *Record {
	name := spec.Name
	if name == "" {
		name = spec.Objective
	}
	return &Record{
		ID:           uuid.NewString(),
		Name:         name,
		Objective:    spec.Objective,
		Description:  spec.Description,
		Tools:        spec.Tools,
		MCPEndpoints: spec.MCPEndpoints,
		Clarify:      spec.Clarify,
		Status:       StatusQueued,
		CurrentPhase: PhaseQueued,
	}
}

// transition validates and applies a status change.
func (r *Record) transition(to Status) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, r.Status)
	}
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s (agent %s)", ErrInvalidTransition, r.Status, to, r.ID)
	}
	r.Status = to
	return nil
}

// setPhase advances CurrentPhase, enforcing monotonicity.
func (r *Record) setPhase(phase int) error {
	if phase < r.CurrentPhase {
		return fmt.Errorf("%w: %d -> %d (agent %s)", ErrPhaseRegression, r.CurrentPhase, phase, r.ID)
	}
	r.CurrentPhase = phase
	return nil
}

// clone returns a deep copy for external readers.
func (r *Record) clone() *Record {
	out := *r

	out.Tools = slices.Clone(r.Tools)
	out.MCPEndpoints = slices.Clone(r.MCPEndpoints)
	out.ClarifyingQuestions = slices.Clone(r.ClarifyingQuestions)
	out.History = slices.Clone(r.History)
	out.HolisticInsights = slices.Clone(r.HolisticInsights)

	if r.ClarifyingAnswers != nil {
		out.ClarifyingAnswers = make(map[string]string, len(r.ClarifyingAnswers))
		for k, v := range r.ClarifyingAnswers {
			out.ClarifyingAnswers[k] = v
		}
	}
	if r.Plan != nil {
		steps := make([]*plan.Step, len(r.Plan.Steps))
		for i, s := range r.Plan.Steps {
			copied := *s
			copied.Artifacts = slices.Clone(s.Artifacts)
			steps[i] = &copied
		}
		out.Plan = &plan.Plan{Steps: steps}
	}
	if r.Deliverable != nil {
		d := *r.Deliverable
		d.DataPoints = slices.Clone(r.Deliverable.DataPoints)
		out.Deliverable = &d
	}
	return &out
}
