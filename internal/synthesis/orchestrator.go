// Package synthesis implements the fan-in side of an engagement: an
// Orchestrator that collects deliverables from completed agents,
// debounces bursts of arrivals, and drives a two-call synthesis
// (executive summary, then a contradiction scan over data points) into a
// single process-lifetime snapshot.
package synthesis

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cadrehq/cadre/internal/completion"
	"github.com/cadrehq/cadre/internal/event"
	"github.com/cadrehq/cadre/internal/insight"
	"github.com/cadrehq/cadre/internal/logging"
)

// Status represents the synthesis routine's current state.
type Status string

const (
	// StatusIdle indicates no synthesis has run since the last reset.
	StatusIdle Status = "idle"

	// StatusSynthesizing indicates a pass is in flight. A second
	// Synthesize call during this window is a no-op.
	StatusSynthesizing Status = "synthesizing"

	// StatusCompleted indicates the snapshot holds a fresh summary.
	StatusCompleted Status = "completed"

	// StatusError indicates the last pass failed. Prior outputs are kept.
	StatusError Status = "error"
)

// Truncation bounds for the synthesized outputs. Order is response
// order; there is no ranking signal to do better with.
const (
	maxContradictions = 5
	maxKeyFindings    = 10
)

// DefaultDebounce is the quiet period between the deliverable that arms
// the synthesis and the pass itself, coalescing near-simultaneous
// arrivals into one run.
const DefaultDebounce = 2 * time.Second

// Deliverable is one agent's final output as received by the
// orchestrator.
type Deliverable struct {
	AgentName  string    `json:"agent_name"`
	Content    string    `json:"content"`
	DataPoints []string  `json:"data_points,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Snapshot is the orchestrator's externally readable state. Accessors
// return deep copies; there is no partial-update window.
type Snapshot struct {
	DeliverablesByAgent map[string]Deliverable `json:"deliverables_by_agent"`
	Status              Status                 `json:"status"`
	ExecutiveSummary    string                 `json:"executive_summary,omitempty"`
	Contradictions      []string               `json:"contradictions,omitempty"`
	KeyFindings         []string               `json:"key_findings,omitempty"`
	LastSynthesisAt     time.Time              `json:"last_synthesis_at,omitzero"`
}

func newSnapshot() Snapshot {
	return Snapshot{
		DeliverablesByAgent: make(map[string]Deliverable),
		Status:              StatusIdle,
	}
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.DeliverablesByAgent = make(map[string]Deliverable, len(s.DeliverablesByAgent))
	for id, d := range s.DeliverablesByAgent {
		d.DataPoints = append([]string(nil), d.DataPoints...)
		out.DeliverablesByAgent[id] = d
	}
	out.Contradictions = append([]string(nil), s.Contradictions...)
	out.KeyFindings = append([]string(nil), s.KeyFindings...)
	return out
}

// Config tunes an Orchestrator. Zero values take the defaults.
type Config struct {
	// Debounce is the quiet period before an auto-scheduled pass.
	Debounce time.Duration

	// MaxTokens and Temperature are passed through on completion calls.
	MaxTokens   int
	Temperature float64
}

// Orchestrator aggregates deliverables and produces the cross-agent
// synthesis. One instance lives for the whole engagement.
type Orchestrator struct {
	mu    sync.Mutex
	snap  Snapshot
	timer *time.Timer

	svc    completion.Service
	ledger *insight.Ledger
	sink   event.Sink
	logger *logging.Logger
	cfg    Config
}

// New creates an Orchestrator with an empty snapshot.
func New(svc completion.Service, ledger *insight.Ledger, sink event.Sink, logger *logging.Logger, cfg Config) *Orchestrator {
	if sink == nil {
		sink = event.NopSink{}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Orchestrator{
		snap:   newSnapshot(),
		svc:    svc,
		ledger: ledger,
		sink:   sink,
		logger: logger,
		cfg:    cfg,
	}
}

// ReceiveDeliverable stores one agent's deliverable; the last write per
// agent wins. Once at least two distinct agents have reported and the
// status is idle, a synthesis pass is scheduled after the debounce
// delay. Arrivals during the quiet period ride the pending timer, so a
// burst of finishing agents produces a single pass.
func (o *Orchestrator) ReceiveDeliverable(agentID, agentName, content string, dataPoints []string) {
	o.mu.Lock()
	o.snap.DeliverablesByAgent[agentID] = Deliverable{
		AgentName:  agentName,
		Content:    content,
		DataPoints: append([]string(nil), dataPoints...),
		ReceivedAt: time.Now(),
	}
	count := len(o.snap.DeliverablesByAgent)
	shouldSchedule := count >= 2 && o.snap.Status == StatusIdle && o.timer == nil
	if shouldSchedule {
		o.timer = time.AfterFunc(o.cfg.Debounce, func() {
			_ = o.Synthesize(context.Background())
		})
	}
	o.mu.Unlock()

	o.logger.Info("deliverable received", "agent", agentID, "agents_reported", count)
	if shouldSchedule {
		o.logger.Info("synthesis scheduled", "debounce", o.cfg.Debounce.String())
	}
}

// Synthesize runs one synthesis pass: an executive summary over every
// stored deliverable's text, then a contradiction scan over the data
// points only. It is a no-op while another pass is in flight. On a
// completion error the status becomes error and the prior outputs are
// left untouched; calling Synthesize again retries.
func (o *Orchestrator) Synthesize(ctx context.Context) error {
	o.mu.Lock()
	if o.snap.Status == StatusSynthesizing {
		o.mu.Unlock()
		return nil
	}
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.snap.Status = StatusSynthesizing
	texts, dataPoints, agentCount := o.collectLocked()
	o.mu.Unlock()

	o.sink.Publish(event.NewSynthesisStartedEvent(agentCount))
	o.logger.Info("synthesis started", "agents", agentCount)

	var insights []string
	if o.ledger != nil {
		for _, e := range o.ledger.ListAll() {
			insights = append(insights, e.Text)
		}
	}

	summary, err := o.svc.Complete(ctx, completion.Request{
		System:      summarySystemPrompt,
		Messages:    []completion.Message{{Role: completion.RoleUser, Content: buildSummaryPrompt(texts, insights)}},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return o.fail(fmt.Errorf("summary call failed: %w", err))
	}

	contradictionResp, err := o.svc.Complete(ctx, completion.Request{
		System:      contradictionSystemPrompt,
		Messages:    []completion.Message{{Role: completion.RoleUser, Content: buildContradictionPrompt(dataPoints)}},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return o.fail(fmt.Errorf("contradiction call failed: %w", err))
	}

	contradictions := firstLines(contradictionResp, maxContradictions)
	keyFindings := dataPoints
	if len(keyFindings) > maxKeyFindings {
		keyFindings = keyFindings[:maxKeyFindings]
	}

	o.mu.Lock()
	o.snap.ExecutiveSummary = summary
	o.snap.Contradictions = contradictions
	o.snap.KeyFindings = keyFindings
	o.snap.Status = StatusCompleted
	o.snap.LastSynthesisAt = time.Now()
	o.mu.Unlock()

	o.sink.Publish(event.NewSynthesisUpdatedEvent(agentCount, len(contradictions), len(keyFindings)))
	o.logger.Info("synthesis completed",
		"agents", agentCount,
		"contradictions", len(contradictions),
		"key_findings", len(keyFindings))
	return nil
}

// Reset clears the snapshot back to its initial empty state. Used when a
// new engagement begins.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.snap = newSnapshot()
	o.mu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap.clone()
}

// collectLocked gathers the synthesis inputs in stable agent order.
// Caller holds o.mu.
func (o *Orchestrator) collectLocked() (texts []string, dataPoints []string, agentCount int) {
	ids := make([]string, 0, len(o.snap.DeliverablesByAgent))
	for id := range o.snap.DeliverablesByAgent {
		ids = append(ids, id)
	}
	// Stable order keeps prompts reproducible across passes.
	slices.Sort(ids)

	for _, id := range ids {
		d := o.snap.DeliverablesByAgent[id]
		texts = append(texts, fmt.Sprintf("## %s\n%s", d.AgentName, d.Content))
		dataPoints = append(dataPoints, d.DataPoints...)
	}
	return texts, dataPoints, len(ids)
}

func (o *Orchestrator) fail(err error) error {
	o.mu.Lock()
	o.snap.Status = StatusError
	o.mu.Unlock()

	o.sink.Publish(event.NewSynthesisErrorEvent(err.Error()))
	o.logger.Error("synthesis failed", "error", err.Error())
	return err
}

// firstLines returns up to max non-empty lines of text, in order.
func firstLines(text string, max int) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == max {
			break
		}
	}
	return lines
}
