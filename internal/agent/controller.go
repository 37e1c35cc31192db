package agent

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cadrehq/cadre/internal/completion"
	"github.com/cadrehq/cadre/internal/event"
	"github.com/cadrehq/cadre/internal/gate"
	"github.com/cadrehq/cadre/internal/insight"
	"github.com/cadrehq/cadre/internal/logging"
	"github.com/cadrehq/cadre/internal/plan"
)

// Default bounded-wait ceilings for the two approval suspensions.
// Both auto-proceed on expiry: approval is a UX nicety, not a
// correctness gate, and an absent approver must never stall a run.
const (
	DefaultPlanConfirmCeiling = 20 * time.Minute
	DefaultApprovalCeiling    = time.Minute
)

// Config tunes a Controller. Zero values take the defaults.
type Config struct {
	// PlanConfirmCeiling bounds the wait for ConfirmPlan after the plan
	// is generated.
	PlanConfirmCeiling time.Duration

	// ApprovalCeiling bounds the wait for SubmitApproval; on expiry the
	// run proceeds with empty answers.
	ApprovalCeiling time.Duration

	// MaxTokens and Temperature are passed through on every completion
	// call. Zero means the backend default.
	MaxTokens   int
	Temperature float64
}

func (c Config) withDefaults() Config {
	if c.PlanConfirmCeiling <= 0 {
		c.PlanConfirmCeiling = DefaultPlanConfirmCeiling
	}
	if c.ApprovalCeiling <= 0 {
		c.ApprovalCeiling = DefaultApprovalCeiling
	}
	return c
}

// Deps bundles the collaborators a Controller needs. Completion is
// required; the rest default to no-op implementations.
type Deps struct {
	Completion completion.Service
	Ledger     *insight.Ledger
	Events     event.Sink
	Store      Store
	Logger     *logging.Logger
	Config     Config
}

// Controller drives one agent through the four-phase lifecycle. All
// record mutation happens under a single mutex with no completion call
// in flight, so external readers never observe partial writes.
type Controller struct {
	mu  sync.Mutex
	rec *Record

	svc    completion.Service
	ledger *insight.Ledger
	sink   event.Sink
	store  Store
	logger *logging.Logger
	cfg    Config

	planGate      *gate.Gate[struct{}]
	approvalGate  *gate.Gate[map[string]string]
	stopRequested atomic.Bool
}

// NewController creates a Controller for a freshly submitted agent.
func NewController(spec Spec, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	sink := deps.Events
	if sink == nil {
		sink = event.NopSink{}
	}
	store := deps.Store
	if store == nil {
		store = NewMemoryStore()
	}
	ledger := deps.Ledger
	if ledger == nil {
		ledger = insight.NewLedger(logger)
	}

	rec := NewRecord(spec)
	return &Controller{
		rec:          rec,
		svc:          deps.Completion,
		ledger:       ledger,
		sink:         sink,
		store:        store,
		logger:       logger.WithAgent(rec.ID),
		cfg:          deps.Config.withDefaults(),
		planGate:     gate.New[struct{}](),
		approvalGate: gate.New[map[string]string](),
	}
}

// ID returns the agent's identifier.
func (c *Controller) ID() string {
	return c.rec.ID
}

// Record returns a deep copy of the agent's current state.
func (c *Controller) Record() *Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.clone()
}

// Status returns the agent's current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Status
}

// ConfirmPlan releases the post-planning suspension. Calling it more
// than once, or after the ceiling already elapsed, has no effect.
func (c *Controller) ConfirmPlan() {
	c.planGate.Resolve(struct{}{})
}

// SubmitApproval releases the approval suspension with the operator's
// answers to the clarifying questions. Answers are optional; nil is
// treated as empty.
func (c *Controller) SubmitApproval(answers map[string]string) {
	if answers == nil {
		answers = map[string]string{}
	}
	c.approvalGate.Resolve(answers)
}

// Stop requests a cooperative pause. An in-flight completion call is not
// interrupted; the execution loop checks the flag between steps and
// exits with status paused, leaving later steps pending.
func (c *Controller) Stop() {
	c.stopRequested.Store(true)
	c.logger.Info("stop requested")
}

// Start runs the agent through all four phases. It blocks until the
// agent reaches completed, paused, or error. Any completion-service
// error aborts the run, sets status error, and is returned; it is never
// retried here.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.runPlanPhase(ctx); err != nil {
		return err
	}
	if err := c.runApprovePhase(ctx); err != nil {
		return err
	}
	paused, err := c.runExecutePhase(ctx)
	if err != nil || paused {
		return err
	}
	return c.runSynthesizePhase(ctx)
}

// runPlanPhase issues the planning call, parses the step plan, and
// suspends on the confirmation gate.
func (c *Controller) runPlanPhase(ctx context.Context) error {
	c.mu.Lock()
	if c.rec.Status != StatusQueued {
		status := c.rec.Status
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot start agent in status %s", ErrInvalidTransition, status)
	}
	if err := c.rec.transition(StatusPlanning); err != nil {
		c.mu.Unlock()
		return err
	}
	_ = c.rec.setPhase(PhasePlan)
	prompt := buildPlanningPrompt(c.rec)
	c.mu.Unlock()

	c.publishPhase(PhasePlan)
	c.logger.Info("planning started")

	resp, err := c.complete(ctx, planningSystemPrompt, prompt, false)
	if err != nil {
		return c.fail(fmt.Errorf("planning call failed: %w", err))
	}

	titles := ParsePlanSteps(resp)
	if len(titles) == 0 {
		return c.fail(fmt.Errorf("planning response contained no steps"))
	}

	c.mu.Lock()
	c.rec.Plan = plan.New(titles)
	if err := c.rec.transition(StatusPlanReady); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	stepCount := c.rec.Plan.Len()
	c.mu.Unlock()

	c.sink.Publish(event.NewPlanGeneratedEvent(c.rec.ID, stepCount))
	c.save()
	c.logger.Info("plan generated", "steps", stepCount)

	if _, resolved := c.planGate.Await(ctx, c.cfg.PlanConfirmCeiling, struct{}{}); !resolved {
		c.logger.Info("plan confirmation ceiling elapsed, auto-proceeding")
	}
	return nil
}

// runApprovePhase optionally asks clarifying questions, then suspends on
// the approval gate with an empty-answer fallback.
func (c *Controller) runApprovePhase(ctx context.Context) error {
	c.mu.Lock()
	_ = c.rec.setPhase(PhaseApprove)
	clarify := c.rec.Clarify
	c.mu.Unlock()

	c.publishPhase(PhaseApprove)

	if clarify {
		c.mu.Lock()
		if err := c.rec.transition(StatusAwaitingClarification); err != nil {
			c.mu.Unlock()
			return c.fail(err)
		}
		prompt := buildClarifyingPrompt(c.rec)
		c.mu.Unlock()

		resp, err := c.complete(ctx, clarifyingSystemPrompt, prompt, false)
		if err != nil {
			return c.fail(fmt.Errorf("clarifying call failed: %w", err))
		}

		c.mu.Lock()
		c.rec.ClarifyingQuestions = ParseQuestions(resp)
		c.mu.Unlock()
	}

	c.mu.Lock()
	if err := c.rec.transition(StatusAwaitingApproval); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	c.mu.Unlock()
	c.save()

	answers, resolved := c.approvalGate.Await(ctx, c.cfg.ApprovalCeiling, map[string]string{})
	if !resolved {
		c.logger.Info("approval ceiling elapsed, proceeding with empty answers")
	}

	c.mu.Lock()
	c.rec.ClarifyingAnswers = answers
	c.mu.Unlock()
	return nil
}

// runExecutePhase iterates the plan strictly in order, then runs the
// holistic-insight step over all completed outputs. Returns paused=true
// when a stop request ended the loop early.
func (c *Controller) runExecutePhase(ctx context.Context) (paused bool, err error) {
	c.mu.Lock()
	if err := c.rec.transition(StatusRunning); err != nil {
		c.mu.Unlock()
		return false, c.fail(err)
	}
	_ = c.rec.setPhase(PhaseExecute)
	total := c.rec.Plan.Len()
	c.mu.Unlock()

	c.publishPhase(PhaseExecute)
	c.logger.Info("execution started", "steps", total)

	for i := 0; i < total; i++ {
		if c.stopRequested.Load() {
			return true, c.pause(i)
		}
		if err := c.executeStep(ctx, i); err != nil {
			return false, err
		}
	}

	if c.stopRequested.Load() {
		return true, c.pause(total)
	}
	return false, c.reportInsights(ctx)
}

// executeStep runs one step: a single completion call seeded with the
// running history, the neighbor step titles, and the clarifying answers.
// A failed step re-raises; the loop never continues past it.
func (c *Controller) executeStep(ctx context.Context, index int) error {
	c.mu.Lock()
	step := c.rec.Plan.Steps[index]
	if err := step.Start(); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	prompt := buildStepPrompt(c.rec, index)
	stepID, title := step.ID, step.Title
	c.mu.Unlock()

	c.sink.Publish(event.NewStepStartedEvent(c.rec.ID, stepID, title, index))
	c.logger.Info("step started", "step", title, "index", index)

	resp, err := c.complete(ctx, stepSystemPrompt, prompt, true)
	if err != nil {
		c.mu.Lock()
		_ = step.Fail(err.Error())
		c.mu.Unlock()
		c.sink.Publish(event.NewStepFailedEvent(c.rec.ID, stepID, title, err.Error()))
		return c.fail(fmt.Errorf("step %q failed: %w", title, err))
	}

	c.mu.Lock()
	if err := step.Complete(resp, ExtractArtifacts(resp)); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	c.rec.History = append(c.rec.History,
		completion.Message{Role: completion.RoleUser, Content: prompt},
		completion.Message{Role: completion.RoleAssistant, Content: resp},
	)
	c.mu.Unlock()

	c.sink.Publish(event.NewStepCompletedEvent(c.rec.ID, stepID, title, index))
	c.save()
	c.logger.Info("step completed", "step", title, "index", index)
	return nil
}

// reportInsights runs the holistic-insight step: one synthesis call over
// every completed step's output, submitted finding by finding to the
// shared ledger. Near-duplicates are silently dropped by the ledger.
func (c *Controller) reportInsights(ctx context.Context) error {
	c.mu.Lock()
	prompt := buildInsightsPrompt(c.rec)
	c.mu.Unlock()

	resp, err := c.complete(ctx, insightsSystemPrompt, prompt, false)
	if err != nil {
		return c.fail(fmt.Errorf("holistic insight call failed: %w", err))
	}

	findings := ParseFindings(resp)
	accepted := c.ledger.Submit(c.rec.ID, c.rec.Name, findings, insight.Metadata{
		Phase: PhaseExecute,
	})

	texts := make([]string, len(accepted))
	for i, e := range accepted {
		texts[i] = e.Text
	}

	c.mu.Lock()
	c.rec.HolisticInsights = texts
	c.mu.Unlock()

	c.sink.Publish(event.NewInsightsReportedEvent(c.rec.ID, len(findings), len(accepted)))
	c.save()
	c.logger.Info("insights reported", "submitted", len(findings), "accepted", len(accepted))
	return nil
}

// runSynthesizePhase produces the agent's deliverable from the full
// conversation history and completes the run.
func (c *Controller) runSynthesizePhase(ctx context.Context) error {
	c.mu.Lock()
	_ = c.rec.setPhase(PhaseSynthesize)
	prompt := buildDeliverablePrompt(c.rec)
	c.mu.Unlock()

	c.publishPhase(PhaseSynthesize)

	resp, err := c.complete(ctx, deliverableSystemPrompt, prompt, true)
	if err != nil {
		return c.fail(fmt.Errorf("deliverable call failed: %w", err))
	}

	c.mu.Lock()
	c.rec.Deliverable = &Deliverable{
		Content:     resp,
		DataPoints:  ExtractDataPoints(resp),
		GeneratedAt: time.Now(),
	}
	if err := c.rec.transition(StatusCompleted); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	c.mu.Unlock()

	c.sink.Publish(event.NewCompletedEvent(c.rec.ID))
	c.save()
	c.logger.Info("agent completed")
	return nil
}

// Chat appends an operator message to the conversation and returns the
// model's reply. Valid in any non-terminal state; it never touches phase
// or status.
func (c *Controller) Chat(ctx context.Context, message string) (string, error) {
	c.mu.Lock()
	if c.rec.Status.IsTerminal() {
		status := c.rec.Status
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrTerminal, status)
	}
	c.mu.Unlock()

	resp, err := c.complete(ctx, chatSystemPrompt, message, true)
	if err != nil {
		return "", fmt.Errorf("chat call failed: %w", err)
	}

	c.mu.Lock()
	c.rec.History = append(c.rec.History,
		completion.Message{Role: completion.RoleUser, Content: message},
		completion.Message{Role: completion.RoleAssistant, Content: resp},
	)
	c.mu.Unlock()
	return resp, nil
}

// complete issues one completion call. The history snapshot is taken
// under the mutex; the call itself runs unlocked.
func (c *Controller) complete(ctx context.Context, system, userMessage string, includeHistory bool) (string, error) {
	c.mu.Lock()
	var messages []completion.Message
	if includeHistory {
		messages = slices.Clone(c.rec.History)
	}
	tools := slices.Clone(c.rec.Tools)
	c.mu.Unlock()

	messages = append(messages, completion.Message{
		Role:    completion.RoleUser,
		Content: userMessage,
	})

	return c.svc.Complete(ctx, completion.Request{
		System:      system,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Tools:       tools,
	})
}

// pause transitions the agent to paused after a stop request. Steps at
// and after nextIndex remain pending.
func (c *Controller) pause(nextIndex int) error {
	c.mu.Lock()
	if err := c.rec.transition(StatusPaused); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	c.mu.Unlock()

	c.save()
	c.logger.Info("agent paused", "next_step_index", nextIndex)
	return nil
}

// fail records a phase-scoped failure: status error, message stored,
// error event published. The returned error propagates out of Start.
func (c *Controller) fail(err error) error {
	c.mu.Lock()
	if !c.rec.Status.IsTerminal() {
		c.rec.Status = StatusError
	}
	c.rec.ErrorMessage = err.Error()
	c.mu.Unlock()

	c.sink.Publish(event.NewErrorEvent(c.rec.ID, err.Error()))
	c.save()
	c.logger.Error("agent failed", "error", err.Error())
	return err
}

// publishPhase emits the phase-started event for the given phase.
func (c *Controller) publishPhase(phase int) {
	c.sink.Publish(event.NewPhaseStartedEvent(c.rec.ID, phase, PhaseName(phase)))
}

// save persists the record opportunistically. Persistence is
// write-through cache semantics: a failure is logged, never fatal, and
// in-memory state remains authoritative for the run.
func (c *Controller) save() {
	c.mu.Lock()
	snapshot := c.rec.clone()
	c.mu.Unlock()

	if err := c.store.SaveAgentState(snapshot.ID, snapshot); err != nil {
		c.logger.Warn("failed to persist agent state", "error", err.Error())
	}
}
