package insight

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cadrehq/cadre/internal/logging"
)

// DefaultThreshold is the similarity score at or above which a candidate
// finding is considered a near-duplicate of an accepted entry. The value
// is empirical and global: with no ground truth for "same finding", a
// single predictable threshold beats a tunable one.
const DefaultThreshold = 0.7

// Entry is one accepted finding. Immutable once stored; removable only
// via Delete.
type Entry struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	AgentName  string    `json:"agent_name"`
	Text       string    `json:"text"`
	StepTitle  string    `json:"step_title,omitempty"`
	Phase      int       `json:"phase"`
	Sequence   int       `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	ReportedAt time.Time `json:"reported_at"`
}

// Metadata carries the submission context recorded on accepted entries.
type Metadata struct {
	StepTitle string
	Phase     int
}

// Ledger is the append-only, deduplicating collection of findings shared
// by every agent in an engagement. All mutation happens under one mutex
// hold: the reject-or-append decision for a candidate is atomic, so two
// near-simultaneous submissions of the same fact cannot both pass the
// duplicate check.
type Ledger struct {
	mu        sync.Mutex
	entries   []Entry
	sequence  int
	threshold float64
	logger    *logging.Logger
}

// NewLedger creates a Ledger with the default similarity threshold.
func NewLedger(logger *logging.Logger) *Ledger {
	return NewLedgerWithThreshold(logger, DefaultThreshold)
}

// NewLedgerWithThreshold creates a Ledger with a custom threshold.
// Intended for configuration plumbing and tests; production engagements
// use the default.
func NewLedgerWithThreshold(logger *logging.Logger, threshold float64) *Ledger {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Ledger{
		threshold: threshold,
		logger:    logger,
	}
}

// Submit offers candidate findings from one agent. Each candidate is
// compared against every previously accepted entry, across all agents and
// including candidates accepted earlier in this same call; any comparison
// at or above the threshold silently drops the candidate. Accepted
// candidates are appended and returned.
func (l *Ledger) Submit(agentID, agentName string, candidates []string, meta Metadata) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var accepted []Entry
	now := time.Now()

	for _, text := range candidates {
		if text == "" {
			continue
		}

		if l.isDuplicateLocked(text) {
			l.logger.Debug("insight rejected as near-duplicate",
				"agent_id", agentID,
				"text", text,
			)
			continue
		}

		l.sequence++
		entry := Entry{
			ID:         uuid.NewString(),
			AgentID:    agentID,
			AgentName:  agentName,
			Text:       text,
			StepTitle:  meta.StepTitle,
			Phase:      meta.Phase,
			Sequence:   l.sequence,
			Timestamp:  now,
			ReportedAt: now,
		}
		l.entries = append(l.entries, entry)
		accepted = append(accepted, entry)
	}

	if len(accepted) > 0 {
		l.logger.Info("insights accepted",
			"agent_id", agentID,
			"submitted", len(candidates),
			"accepted", len(accepted),
		)
	}

	return accepted
}

// isDuplicateLocked reports whether text is a near-duplicate of any
// accepted entry. Caller must hold l.mu.
func (l *Ledger) isDuplicateLocked(text string) bool {
	for _, entry := range l.entries {
		if Similarity(entry.Text, text) >= l.threshold {
			return true
		}
	}
	return false
}

// ListAll returns a copy of every entry, sorted by timestamp descending.
// Entries sharing a timestamp keep insertion order via the sequence.
func (l *Ledger) ListAll() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Sequence > out[j].Sequence
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Delete removes an entry by ID. Returns true if an entry was removed.
// Deleting has no effect on the invariants of other entries.
func (l *Ledger) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, entry := range l.entries {
		if entry.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of accepted entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
