// Package engagement wires the fan-out side of a run: a Runner that owns
// the shared insight ledger, event bus, store, and synthesis
// orchestrator, and executes any number of agent controllers
// concurrently. Agents are independent; one agent failing or panicking
// never aborts the others or the synthesis.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/cadrehq/cadre/internal/agent"
	"github.com/cadrehq/cadre/internal/completion"
	"github.com/cadrehq/cadre/internal/event"
	"github.com/cadrehq/cadre/internal/insight"
	"github.com/cadrehq/cadre/internal/logging"
	"github.com/cadrehq/cadre/internal/synthesis"
)

// Config tunes a Runner and the components it owns.
type Config struct {
	// Agent is applied to every controller.
	Agent agent.Config

	// Synthesis is applied to the orchestrator.
	Synthesis synthesis.Config

	// SimilarityThreshold overrides the insight dedup threshold when > 0.
	SimilarityThreshold float64
}

// Runner executes one engagement: a set of agents sharing a ledger, an
// event bus, a store, and one synthesis orchestrator.
type Runner struct {
	mu          sync.Mutex
	controllers []*agent.Controller
	byID        map[string]*agent.Controller

	svc    completion.Service
	ledger *insight.Ledger
	bus    *event.Bus
	store  agent.Store
	orch   *synthesis.Orchestrator
	logger *logging.Logger
	cfg    Config
}

// New creates a Runner with fresh shared components.
func New(svc completion.Service, logger *logging.Logger, cfg Config) *Runner {
	if logger == nil {
		logger = logging.NopLogger()
	}

	var ledger *insight.Ledger
	if cfg.SimilarityThreshold > 0 {
		ledger = insight.NewLedgerWithThreshold(logger, cfg.SimilarityThreshold)
	} else {
		ledger = insight.NewLedger(logger)
	}

	bus := event.NewBus()
	return &Runner{
		byID:   make(map[string]*agent.Controller),
		svc:    svc,
		ledger: ledger,
		bus:    bus,
		store:  agent.NewMemoryStore(),
		orch:   synthesis.New(svc, ledger, bus, logger, cfg.Synthesis),
		logger: logger,
		cfg:    cfg,
	}
}

// Submit registers one agent for the engagement and returns its
// controller, which callers use for ConfirmPlan, SubmitApproval, Stop,
// and Chat. Submission does not start the agent; Run does.
func (r *Runner) Submit(spec agent.Spec) *agent.Controller {
	ctrl := agent.NewController(spec, agent.Deps{
		Completion: r.svc,
		Ledger:     r.ledger,
		Events:     r.bus,
		Store:      r.store,
		Logger:     r.logger,
		Config:     r.cfg.Agent,
	})

	r.mu.Lock()
	r.controllers = append(r.controllers, ctrl)
	r.byID[ctrl.ID()] = ctrl
	r.mu.Unlock()

	r.logger.Info("agent submitted", "agent", ctrl.ID(), "objective", spec.Objective)
	return ctrl
}

// Controller looks up a submitted agent by ID.
func (r *Runner) Controller(id string) (*agent.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctrl, ok := r.byID[id]
	return ctrl, ok
}

// Ledger returns the engagement's shared insight ledger.
func (r *Runner) Ledger() *insight.Ledger { return r.ledger }

// Bus returns the engagement's event bus.
func (r *Runner) Bus() *event.Bus { return r.bus }

// Store returns the engagement's agent store.
func (r *Runner) Store() agent.Store { return r.store }

// Orchestrator returns the engagement's synthesis orchestrator.
func (r *Runner) Orchestrator() *synthesis.Orchestrator { return r.orch }

// Run executes every submitted agent concurrently and blocks until all
// have reached a terminal or paused state, then triggers a final
// synthesis pass if at least two deliverables arrived. Per-agent
// failures are collected into the returned error; they never interrupt
// sibling agents.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	controllers := make([]*agent.Controller, len(r.controllers))
	copy(controllers, r.controllers)
	r.mu.Unlock()

	if len(controllers) == 0 {
		return errors.New("no agents submitted")
	}

	r.logger.Info("engagement started", "agents", len(controllers))

	var (
		errMu  sync.Mutex
		errs   []error
		panics []string
	)

	var wg conc.WaitGroup
	for _, ctrl := range controllers {
		wg.Go(func() {
			if err := ctrl.Start(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("agent %s: %w", ctrl.ID(), err))
				errMu.Unlock()
				return
			}
			rec := ctrl.Record()
			if rec.Status == agent.StatusCompleted && rec.Deliverable != nil {
				r.orch.ReceiveDeliverable(rec.ID, rec.Name, rec.Deliverable.Content, rec.Deliverable.DataPoints)
			}
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		errMu.Lock()
		panics = append(panics, recovered.String())
		errMu.Unlock()
	}

	for _, p := range panics {
		errs = append(errs, fmt.Errorf("agent panicked: %s", p))
		r.logger.Error("agent panicked", "panic", p)
	}

	// All agents are done; skip the remaining debounce and synthesize
	// directly when enough deliverables arrived.
	snap := r.orch.Snapshot()
	if len(snap.DeliverablesByAgent) >= 2 && snap.Status != synthesis.StatusCompleted {
		if err := r.orch.Synthesize(ctx); err != nil {
			errs = append(errs, fmt.Errorf("synthesis: %w", err))
		}
	}

	r.logger.Info("engagement finished", "agents", len(controllers), "failures", len(errs))
	return errors.Join(errs...)
}
