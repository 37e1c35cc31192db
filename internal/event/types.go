// Package event defines the event vocabulary cadre publishes while agents
// move through their lifecycle, and a synchronous pub-sub bus for delivering
// those events to an external subscriber (UI or transport layer) without
// direct dependencies. Publication is fire-and-forget: no acknowledgment is
// expected and a slow or panicking subscriber never blocks the core.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "agent.step_completed").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Sink receives published events. The Bus implements Sink; callers that
// only need to emit events should depend on this interface rather than
// the concrete Bus.
type Sink interface {
	Publish(Event)
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Agent lifecycle events
// -----------------------------------------------------------------------------

// PhaseStartedEvent is emitted when an agent enters a new lifecycle phase.
type PhaseStartedEvent struct {
	baseEvent
	AgentID string
	Phase   int    // 0..4
	Name    string // human-readable phase name
}

// NewPhaseStartedEvent creates a PhaseStartedEvent.
func NewPhaseStartedEvent(agentID string, phase int, name string) PhaseStartedEvent {
	return PhaseStartedEvent{
		baseEvent: newBaseEvent("agent.phase_started"),
		AgentID:   agentID,
		Phase:     phase,
		Name:      name,
	}
}

// PlanGeneratedEvent is emitted when an agent's plan has been parsed
// and is awaiting confirmation.
type PlanGeneratedEvent struct {
	baseEvent
	AgentID   string
	StepCount int
}

// NewPlanGeneratedEvent creates a PlanGeneratedEvent.
func NewPlanGeneratedEvent(agentID string, stepCount int) PlanGeneratedEvent {
	return PlanGeneratedEvent{
		baseEvent: newBaseEvent("agent.plan_generated"),
		AgentID:   agentID,
		StepCount: stepCount,
	}
}

// StepStartedEvent is emitted when a plan step transitions to running.
type StepStartedEvent struct {
	baseEvent
	AgentID string
	StepID  string
	Title   string
	Index   int // position in the plan, 0-based
}

// NewStepStartedEvent creates a StepStartedEvent.
func NewStepStartedEvent(agentID, stepID, title string, index int) StepStartedEvent {
	return StepStartedEvent{
		baseEvent: newBaseEvent("agent.step_started"),
		AgentID:   agentID,
		StepID:    stepID,
		Title:     title,
		Index:     index,
	}
}

// StepCompletedEvent is emitted when a plan step completes successfully.
type StepCompletedEvent struct {
	baseEvent
	AgentID string
	StepID  string
	Title   string
	Index   int
}

// NewStepCompletedEvent creates a StepCompletedEvent.
func NewStepCompletedEvent(agentID, stepID, title string, index int) StepCompletedEvent {
	return StepCompletedEvent{
		baseEvent: newBaseEvent("agent.step_completed"),
		AgentID:   agentID,
		StepID:    stepID,
		Title:     title,
		Index:     index,
	}
}

// StepFailedEvent is emitted when a plan step fails. The owning agent
// stops executing; later steps remain pending.
type StepFailedEvent struct {
	baseEvent
	AgentID string
	StepID  string
	Title   string
	Reason  string
}

// NewStepFailedEvent creates a StepFailedEvent.
func NewStepFailedEvent(agentID, stepID, title, reason string) StepFailedEvent {
	return StepFailedEvent{
		baseEvent: newBaseEvent("agent.step_failed"),
		AgentID:   agentID,
		StepID:    stepID,
		Title:     title,
		Reason:    reason,
	}
}

// CompletedEvent is emitted when an agent reaches the completed status
// with a deliverable.
type CompletedEvent struct {
	baseEvent
	AgentID string
}

// NewCompletedEvent creates a CompletedEvent.
func NewCompletedEvent(agentID string) CompletedEvent {
	return CompletedEvent{
		baseEvent: newBaseEvent("agent.completed"),
		AgentID:   agentID,
	}
}

// ErrorEvent is emitted when an agent's run aborts.
type ErrorEvent struct {
	baseEvent
	AgentID string
	Message string
}

// NewErrorEvent creates an ErrorEvent.
func NewErrorEvent(agentID, message string) ErrorEvent {
	return ErrorEvent{
		baseEvent: newBaseEvent("agent.error"),
		AgentID:   agentID,
		Message:   message,
	}
}

// -----------------------------------------------------------------------------
// Insight events
// -----------------------------------------------------------------------------

// InsightsReportedEvent is emitted after an agent submits holistic
// insights to the ledger. Accepted counts only non-duplicates.
type InsightsReportedEvent struct {
	baseEvent
	AgentID   string
	Submitted int
	Accepted  int
}

// NewInsightsReportedEvent creates an InsightsReportedEvent.
func NewInsightsReportedEvent(agentID string, submitted, accepted int) InsightsReportedEvent {
	return InsightsReportedEvent{
		baseEvent: newBaseEvent("insights.reported"),
		AgentID:   agentID,
		Submitted: submitted,
		Accepted:  accepted,
	}
}

// -----------------------------------------------------------------------------
// Synthesis events
// -----------------------------------------------------------------------------

// SynthesisStartedEvent is emitted when a cross-agent synthesis pass begins.
type SynthesisStartedEvent struct {
	baseEvent
	AgentCount int // number of deliverables included in this pass
}

// NewSynthesisStartedEvent creates a SynthesisStartedEvent.
func NewSynthesisStartedEvent(agentCount int) SynthesisStartedEvent {
	return SynthesisStartedEvent{
		baseEvent:  newBaseEvent("synthesis.started"),
		AgentCount: agentCount,
	}
}

// SynthesisUpdatedEvent is emitted when a synthesis pass finishes and the
// snapshot holds a fresh summary, contradiction list, and key findings.
type SynthesisUpdatedEvent struct {
	baseEvent
	AgentCount     int
	Contradictions int
	KeyFindings    int
}

// NewSynthesisUpdatedEvent creates a SynthesisUpdatedEvent.
func NewSynthesisUpdatedEvent(agentCount, contradictions, keyFindings int) SynthesisUpdatedEvent {
	return SynthesisUpdatedEvent{
		baseEvent:      newBaseEvent("synthesis.updated"),
		AgentCount:     agentCount,
		Contradictions: contradictions,
		KeyFindings:    keyFindings,
	}
}

// SynthesisErrorEvent is emitted when a synthesis pass fails. The prior
// snapshot outputs are left untouched.
type SynthesisErrorEvent struct {
	baseEvent
	Message string
}

// NewSynthesisErrorEvent creates a SynthesisErrorEvent.
func NewSynthesisErrorEvent(message string) SynthesisErrorEvent {
	return SynthesisErrorEvent{
		baseEvent: newBaseEvent("synthesis.error"),
		Message:   message,
	}
}
