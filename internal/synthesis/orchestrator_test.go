package synthesis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cadrehq/cadre/internal/completion"
	"github.com/cadrehq/cadre/internal/event"
	"github.com/cadrehq/cadre/internal/insight"
	"github.com/cadrehq/cadre/internal/logging"
)

func newTestOrchestrator(svc completion.Service, cfg Config) *Orchestrator {
	return New(svc, insight.NewLedger(logging.NopLogger()), event.NopSink{}, logging.NopLogger(), cfg)
}

func TestOrchestrator_SingleAgentDoesNotSchedule(t *testing.T) {
	svc := completion.NewScriptedService()
	o := newTestOrchestrator(svc, Config{Debounce: 20 * time.Millisecond})

	o.ReceiveDeliverable("a1", "Analyst", "findings", nil)
	time.Sleep(100 * time.Millisecond)

	if svc.Calls() != 0 {
		t.Errorf("one agent must not trigger synthesis, got %d calls", svc.Calls())
	}
	if got := o.Snapshot().Status; got != StatusIdle {
		t.Errorf("expected idle, got %s", got)
	}
}

func TestOrchestrator_DebounceCoalescesBurst(t *testing.T) {
	svc := completion.NewScriptedService().Script("summary", "No contradictions found.")
	o := newTestOrchestrator(svc, Config{Debounce: 300 * time.Millisecond})

	// Two deliverables arriving well inside one debounce window must
	// produce exactly one synthesis pass containing both.
	o.ReceiveDeliverable("a1", "Analyst", "first deliverable", []string{"claim one"})
	time.Sleep(50 * time.Millisecond)
	o.ReceiveDeliverable("a2", "Researcher", "second deliverable", []string{"claim two"})

	deadline := time.Now().Add(3 * time.Second)
	for o.Snapshot().Status != StatusCompleted {
		if time.Now().After(deadline) {
			t.Fatalf("synthesis never completed, status %s", o.Snapshot().Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if svc.Calls() != 2 {
		t.Errorf("expected one pass (2 completion calls), got %d calls", svc.Calls())
	}

	reqs := svc.Requests()
	summaryInput := reqs[0].Messages[0].Content
	if !strings.Contains(summaryInput, "first deliverable") || !strings.Contains(summaryInput, "second deliverable") {
		t.Error("summary prompt should contain both deliverables")
	}
	contradictionInput := reqs[1].Messages[0].Content
	if !strings.Contains(contradictionInput, "claim one") || !strings.Contains(contradictionInput, "claim two") {
		t.Error("contradiction prompt should contain both agents' data points")
	}
}

func TestOrchestrator_LastWritePerAgentWins(t *testing.T) {
	svc := completion.NewScriptedService().Script("summary", "none")
	o := newTestOrchestrator(svc, Config{Debounce: time.Hour})

	o.ReceiveDeliverable("a1", "Analyst", "stale", nil)
	o.ReceiveDeliverable("a1", "Analyst", "fresh", nil)

	snap := o.Snapshot()
	if len(snap.DeliverablesByAgent) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snap.DeliverablesByAgent))
	}
	if snap.DeliverablesByAgent["a1"].Content != "fresh" {
		t.Errorf("resubmission should overwrite, got %q", snap.DeliverablesByAgent["a1"].Content)
	}
}

func TestOrchestrator_SynthesizeWritesSnapshot(t *testing.T) {
	svc := completion.NewScriptedService().Script(
		"executive summary text",
		"contradiction one\ncontradiction two",
	)
	o := newTestOrchestrator(svc, Config{Debounce: time.Hour})

	o.ReceiveDeliverable("a1", "Analyst", "alpha", []string{"p1", "p2"})
	o.ReceiveDeliverable("a2", "Researcher", "beta", []string{"p3"})

	if err := o.Synthesize(context.Background()); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	snap := o.Snapshot()
	if snap.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", snap.Status)
	}
	if snap.ExecutiveSummary != "executive summary text" {
		t.Errorf("unexpected summary: %q", snap.ExecutiveSummary)
	}
	if len(snap.Contradictions) != 2 {
		t.Errorf("expected 2 contradictions, got %v", snap.Contradictions)
	}
	if len(snap.KeyFindings) != 3 {
		t.Errorf("expected 3 key findings, got %v", snap.KeyFindings)
	}
	if snap.LastSynthesisAt.IsZero() {
		t.Error("LastSynthesisAt should be stamped")
	}
}

func TestOrchestrator_TruncatesContradictionsAndFindings(t *testing.T) {
	longScan := strings.Join([]string{"l1", "l2", "l3", "l4", "l5", "l6", "l7"}, "\n")
	svc := completion.NewScriptedService().Script("summary", longScan)
	o := newTestOrchestrator(svc, Config{Debounce: time.Hour})

	points := make([]string, 12)
	for i := range points {
		points[i] = strings.Repeat("p", i+1)
	}
	o.ReceiveDeliverable("a1", "A", "alpha", points[:6])
	o.ReceiveDeliverable("a2", "B", "beta", points[6:])

	if err := o.Synthesize(context.Background()); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	snap := o.Snapshot()
	if len(snap.Contradictions) != 5 {
		t.Errorf("contradictions should truncate to 5, got %d", len(snap.Contradictions))
	}
	if len(snap.KeyFindings) != 10 {
		t.Errorf("key findings should truncate to 10, got %d", len(snap.KeyFindings))
	}
}

func TestOrchestrator_ErrorKeepsPriorOutputs(t *testing.T) {
	boom := errors.New("backend down")
	svc := completion.NewScriptedService().
		Script("good summary", "no contradictions").
		FailNext(boom)
	o := newTestOrchestrator(svc, Config{Debounce: time.Hour})

	o.ReceiveDeliverable("a1", "A", "alpha", nil)
	o.ReceiveDeliverable("a2", "B", "beta", nil)

	if err := o.Synthesize(context.Background()); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if err := o.Synthesize(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}

	snap := o.Snapshot()
	if snap.Status != StatusError {
		t.Errorf("expected error status, got %s", snap.Status)
	}
	if snap.ExecutiveSummary != "good summary" {
		t.Errorf("prior summary must survive a failed pass, got %q", snap.ExecutiveSummary)
	}
}

func TestOrchestrator_ReentrancyGuard(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls int
	var mu sync.Mutex

	svc := serviceFunc(func(ctx context.Context, req completion.Request) (string, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			started <- struct{}{}
			<-release
		}
		return "ok", nil
	})
	o := newTestOrchestrator(svc, Config{Debounce: time.Hour})
	o.ReceiveDeliverable("a1", "A", "alpha", nil)
	o.ReceiveDeliverable("a2", "B", "beta", nil)

	done := make(chan error, 1)
	go func() { done <- o.Synthesize(context.Background()) }()
	<-started

	// While the first pass is blocked inside the summary call, a second
	// Synthesize must return immediately without issuing calls.
	if err := o.Synthesize(context.Background()); err != nil {
		t.Fatalf("re-entrant call should no-op, got %v", err)
	}
	mu.Lock()
	if calls != 1 {
		t.Errorf("re-entrant call issued completion calls: %d", calls)
	}
	mu.Unlock()

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if got := o.Snapshot().Status; got != StatusCompleted {
		t.Errorf("expected completed, got %s", got)
	}
}

func TestOrchestrator_Reset(t *testing.T) {
	svc := completion.NewScriptedService().Script("summary", "none")
	o := newTestOrchestrator(svc, Config{Debounce: time.Hour})

	o.ReceiveDeliverable("a1", "A", "alpha", nil)
	o.ReceiveDeliverable("a2", "B", "beta", nil)
	if err := o.Synthesize(context.Background()); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	o.Reset()

	snap := o.Snapshot()
	if snap.Status != StatusIdle {
		t.Errorf("expected idle after reset, got %s", snap.Status)
	}
	if len(snap.DeliverablesByAgent) != 0 || snap.ExecutiveSummary != "" {
		t.Errorf("reset should clear the snapshot: %+v", snap)
	}
}

func TestOrchestrator_SnapshotIsDeepCopy(t *testing.T) {
	svc := completion.NewScriptedService()
	o := newTestOrchestrator(svc, Config{Debounce: time.Hour})
	o.ReceiveDeliverable("a1", "A", "alpha", []string{"point"})

	snap := o.Snapshot()
	d := snap.DeliverablesByAgent["a1"]
	d.DataPoints[0] = "mutated"
	snap.DeliverablesByAgent["a1"] = Deliverable{Content: "mutated"}

	again := o.Snapshot()
	if again.DeliverablesByAgent["a1"].Content != "alpha" {
		t.Error("snapshot map must not be shared with callers")
	}
	if again.DeliverablesByAgent["a1"].DataPoints[0] != "point" {
		t.Error("snapshot data points must not be shared with callers")
	}
}

// serviceFunc adapts a function to completion.Service.
type serviceFunc func(ctx context.Context, req completion.Request) (string, error)

func (f serviceFunc) Complete(ctx context.Context, req completion.Request) (string, error) {
	return f(ctx, req)
}
