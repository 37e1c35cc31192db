// Package internal contains integration tests that verify the packages
// work together: agents driving the shared ledger and event bus, and
// deliverables flowing into the synthesis orchestrator.
package internal

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cadrehq/cadre/internal/agent"
	"github.com/cadrehq/cadre/internal/completion"
	"github.com/cadrehq/cadre/internal/engagement"
	"github.com/cadrehq/cadre/internal/event"
	"github.com/cadrehq/cadre/internal/synthesis"
)

func fastConfig() engagement.Config {
	return engagement.Config{
		Agent: agent.Config{
			PlanConfirmCeiling: 10 * time.Millisecond,
			ApprovalCeiling:    10 * time.Millisecond,
		},
		Synthesis: synthesis.Config{Debounce: 20 * time.Millisecond},
	}
}

type serviceFunc func(ctx context.Context, req completion.Request) (string, error)

func (f serviceFunc) Complete(ctx context.Context, req completion.Request) (string, error) {
	return f(ctx, req)
}

// TestEventBusIntegration verifies that agent lifecycle events published
// during a full engagement reach a bus subscriber in a coherent order.
func TestEventBusIntegration(t *testing.T) {
	svc := serviceFunc(func(ctx context.Context, req completion.Request) (string, error) {
		return "1. Finding: steady demand across regions", nil
	})
	runner := engagement.New(svc, nil, fastConfig())

	var mu sync.Mutex
	var types []string
	runner.Bus().SubscribeAll(func(e event.Event) {
		mu.Lock()
		types = append(types, e.EventType())
		mu.Unlock()
	})

	ctrl := runner.Submit(agent.Spec{Name: "Analyst", Objective: "demand study"})
	ctrl.ConfirmPlan()
	ctrl.SubmitApproval(nil)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	seen := make(map[string]bool, len(types))
	for _, typ := range types {
		seen[typ] = true
	}
	for _, want := range []string{
		"agent.phase_started",
		"agent.plan_generated",
		"agent.step_started",
		"agent.step_completed",
		"insights.reported",
		"agent.completed",
	} {
		if !seen[want] {
			t.Errorf("expected event %q on the bus, got %v", want, types)
		}
	}

	// Completion must come after the plan.
	planIdx, doneIdx := -1, -1
	for i, typ := range types {
		if typ == "agent.plan_generated" && planIdx == -1 {
			planIdx = i
		}
		if typ == "agent.completed" {
			doneIdx = i
		}
	}
	if planIdx == -1 || doneIdx == -1 || doneIdx < planIdx {
		t.Errorf("events out of order: %v", types)
	}
}

// TestEngagementSynthesisIntegration runs three agents to completion and
// checks that the fan-in produced one synthesis over all deliverables
// and a deduplicated shared ledger.
func TestEngagementSynthesisIntegration(t *testing.T) {
	// Each agent reports one shared finding and one of its own. The
	// shared one must survive exactly once.
	svc := serviceFunc(func(ctx context.Context, req completion.Request) (string, error) {
		objective := ""
		for _, m := range req.Messages {
			for _, o := range []string{"alpha", "beta", "gamma"} {
				if strings.Contains(m.Content, o+" objective") {
					objective = o
				}
			}
		}
		if strings.Contains(req.System, "cross-cutting findings") {
			return "1. Regulatory pressure increased across all markets\n2. Distinct finding for " + objective, nil
		}
		return "1. Single step result for " + objective, nil
	})
	runner := engagement.New(svc, nil, fastConfig())

	for _, obj := range []string{"alpha objective", "beta objective", "gamma objective"} {
		ctrl := runner.Submit(agent.Spec{Name: obj, Objective: obj})
		ctrl.ConfirmPlan()
		ctrl.SubmitApproval(nil)
	}

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snap := runner.Orchestrator().Snapshot()
	if len(snap.DeliverablesByAgent) != 3 {
		t.Fatalf("expected 3 deliverables, got %d", len(snap.DeliverablesByAgent))
	}
	if snap.Status != synthesis.StatusCompleted {
		t.Errorf("expected synthesis completed, got %s", snap.Status)
	}

	// One shared finding plus three distinct ones.
	if got := runner.Ledger().Len(); got != 4 {
		t.Errorf("expected 4 deduplicated insights, got %d", got)
	}

	shared := 0
	for _, e := range runner.Ledger().ListAll() {
		if strings.Contains(e.Text, "Regulatory pressure") {
			shared++
		}
	}
	if shared != 1 {
		t.Errorf("shared finding should appear exactly once, got %d", shared)
	}
}
