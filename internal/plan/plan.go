// Package plan defines the ordered task plan owned by a single agent.
// A plan is a list of steps executed strictly in order: no two steps of
// one agent are ever running at the same time, and a step must pass
// through running before it can reach a terminal status.
package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StepStatus represents the current state of a plan step.
type StepStatus string

const (
	// StepPending indicates the step has not started yet.
	StepPending StepStatus = "pending"

	// StepRunning indicates the step is actively being executed.
	StepRunning StepStatus = "running"

	// StepCompleted indicates the step finished successfully.
	StepCompleted StepStatus = "completed"

	// StepFailed indicates the step failed. The owning agent stops; later
	// steps stay pending.
	StepFailed StepStatus = "failed"
)

// String returns the string representation of the step status.
func (s StepStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s StepStatus) IsTerminal() bool {
	return s == StepCompleted || s == StepFailed
}

// validStepTransitions is the canonical source of truth for the step
// state machine. A pending step can only start running; a running step
// can only complete or fail.
var validStepTransitions = map[StepStatus][]StepStatus{
	StepPending:   {StepRunning},
	StepRunning:   {StepCompleted, StepFailed},
	StepCompleted: {},
	StepFailed:    {},
}

// ErrInvalidStepTransition indicates an attempted step status change that
// is not allowed.
var ErrInvalidStepTransition = errors.New("invalid step transition")

// Step is one unit of work in an agent's plan. It is mutated only by its
// owning controller, strictly in plan order.
type Step struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      StepStatus `json:"status"`
	Progress    int        `json:"progress"` // 0..100
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Output      string     `json:"output,omitempty"`
	Artifacts   []string   `json:"artifacts,omitempty"`
}

// NewStep creates a pending step with a fresh ID.
func NewStep(title string) *Step {
	return &Step{
		ID:     uuid.NewString(),
		Title:  title,
		Status: StepPending,
	}
}

// transition validates and applies a status change, stamping the
// timestamps that the new status implies.
func (s *Step) transition(to StepStatus) error {
	allowed := validStepTransitions[s.Status]
	ok := false
	for _, t := range allowed {
		if t == to {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s (step %s)", ErrInvalidStepTransition, s.Status, to, s.ID)
	}

	now := time.Now()
	switch to {
	case StepRunning:
		s.StartedAt = &now
	case StepCompleted:
		s.CompletedAt = &now
		s.Progress = 100
	case StepFailed:
		s.CompletedAt = &now
	}
	s.Status = to
	return nil
}

// Start marks the step running.
func (s *Step) Start() error {
	return s.transition(StepRunning)
}

// Complete marks the step completed with its output and artifacts.
func (s *Step) Complete(output string, artifacts []string) error {
	if err := s.transition(StepCompleted); err != nil {
		return err
	}
	s.Output = output
	s.Artifacts = append(s.Artifacts, artifacts...)
	return nil
}

// Fail marks the step failed, recording the failure output.
func (s *Step) Fail(output string) error {
	if err := s.transition(StepFailed); err != nil {
		return err
	}
	s.Output = output
	return nil
}

// Plan is the ordered list of steps belonging to one agent.
type Plan struct {
	Steps []*Step `json:"steps"`
}

// New creates a plan from step titles, in order.
func New(titles []string) *Plan {
	steps := make([]*Step, len(titles))
	for i, title := range titles {
		steps[i] = NewStep(title)
	}
	return &Plan{Steps: steps}
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// CompletedCount returns the number of completed steps.
func (p *Plan) CompletedCount() int {
	count := 0
	for _, s := range p.Steps {
		if s.Status == StepCompleted {
			count++
		}
	}
	return count
}

// PendingCount returns the number of steps that have not started.
func (p *Plan) PendingCount() int {
	count := 0
	for _, s := range p.Steps {
		if s.Status == StepPending {
			count++
		}
	}
	return count
}

// NeighborTitles returns the titles of the steps immediately before and
// after index i. Either may be empty at the plan boundaries. These are
// passed to the completion service as local context for step execution.
func (p *Plan) NeighborTitles(i int) (prev, next string) {
	if i > 0 && i <= len(p.Steps) {
		prev = p.Steps[i-1].Title
	}
	if i >= 0 && i < len(p.Steps)-1 {
		next = p.Steps[i+1].Title
	}
	return prev, next
}

// Outline renders the numbered step list for inclusion in prompts.
func (p *Plan) Outline() string {
	var sb strings.Builder
	for i, s := range p.Steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s.Title)
	}
	return sb.String()
}

// CompletedOutputs returns "title: output" blocks for every completed
// step, in plan order. Used to seed the holistic-insight call.
func (p *Plan) CompletedOutputs() []string {
	var outputs []string
	for _, s := range p.Steps {
		if s.Status == StepCompleted {
			outputs = append(outputs, fmt.Sprintf("## %s\n%s", s.Title, s.Output))
		}
	}
	return outputs
}
