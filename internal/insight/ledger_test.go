package insight

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cadrehq/cadre/internal/logging"
)

func newTestLedger() *Ledger {
	return NewLedger(logging.NopLogger())
}

func TestLedger_AcceptsDistinctFindings(t *testing.T) {
	ledger := newTestLedger()

	accepted := ledger.Submit("agent-1", "Market Analyst", []string{
		"Churn increased among enterprise customers",
		"Logistics bottlenecks delayed hardware shipments",
	}, Metadata{Phase: 3})

	if len(accepted) != 2 {
		t.Fatalf("expected 2 accepted entries, got %d", len(accepted))
	}
	if ledger.Len() != 2 {
		t.Errorf("expected ledger length 2, got %d", ledger.Len())
	}
	for _, e := range accepted {
		if e.ID == "" {
			t.Error("accepted entry should have an ID")
		}
		if e.AgentID != "agent-1" || e.AgentName != "Market Analyst" {
			t.Errorf("unexpected attribution: %+v", e)
		}
	}
}

func TestLedger_RejectsNearDuplicate(t *testing.T) {
	ledger := newTestLedger()

	first := ledger.Submit("agent-1", "Analyst", []string{
		"Enterprise churn increased sharply during fourth quarter",
	}, Metadata{})
	if len(first) != 1 {
		t.Fatalf("first submission should be accepted, got %d", len(first))
	}

	// Same token set, reordered and repunctuated: similarity 1.0.
	second := ledger.Submit("agent-2", "Researcher", []string{
		"During fourth quarter, enterprise churn increased sharply.",
	}, Metadata{})
	if len(second) != 0 {
		t.Fatalf("near-duplicate should be silently dropped, got %d accepted", len(second))
	}
	if ledger.Len() != 1 {
		t.Errorf("ledger should still hold 1 entry, got %d", ledger.Len())
	}
}

func TestLedger_DeduplicatesAcrossAgents(t *testing.T) {
	ledger := newTestLedger()

	ledger.Submit("agent-1", "A", []string{
		"Supply chain costs doubled compared with previous year",
	}, Metadata{})
	accepted := ledger.Submit("agent-2", "B", []string{
		"Supply chain costs doubled compared with previous year",
		"Headcount remained flat despite expansion plans",
	}, Metadata{})

	if len(accepted) != 1 {
		t.Fatalf("expected 1 accepted from second agent, got %d", len(accepted))
	}
	if accepted[0].Text != "Headcount remained flat despite expansion plans" {
		t.Errorf("wrong candidate survived: %q", accepted[0].Text)
	}
}

func TestLedger_DeduplicatesWithinOneSubmission(t *testing.T) {
	ledger := newTestLedger()

	accepted := ledger.Submit("agent-1", "A", []string{
		"Pricing pressure intensified across consumer segments",
		"Pricing pressure intensified across consumer segments",
	}, Metadata{})

	if len(accepted) != 1 {
		t.Fatalf("duplicate within one call should be dropped, got %d", len(accepted))
	}
}

func TestLedger_SkipsEmptyCandidates(t *testing.T) {
	ledger := newTestLedger()

	accepted := ledger.Submit("agent-1", "A", []string{"", "Valid finding about margins"}, Metadata{})
	if len(accepted) != 1 {
		t.Fatalf("empty candidate should be skipped, got %d accepted", len(accepted))
	}
}

func TestLedger_ListAllNewestFirst(t *testing.T) {
	ledger := newTestLedger()

	ledger.Submit("agent-1", "A", []string{"First finding about revenue trends"}, Metadata{})
	ledger.Submit("agent-1", "A", []string{"Second finding about customer retention"}, Metadata{})

	entries := ledger.ListAll()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Sequence < entries[1].Sequence {
		t.Error("ListAll should return newest entries first")
	}
}

func TestLedger_Delete(t *testing.T) {
	ledger := newTestLedger()

	accepted := ledger.Submit("agent-1", "A", []string{"Finding slated for removal"}, Metadata{})
	if !ledger.Delete(accepted[0].ID) {
		t.Fatal("Delete should return true for a known ID")
	}
	if ledger.Delete(accepted[0].ID) {
		t.Error("Delete should return false for an already-removed ID")
	}
	if ledger.Len() != 0 {
		t.Errorf("expected empty ledger after delete, got %d", ledger.Len())
	}

	// Once deleted, the same text is acceptable again: dedup is enforced
	// at insertion time only.
	again := ledger.Submit("agent-2", "B", []string{"Finding slated for removal"}, Metadata{})
	if len(again) != 1 {
		t.Error("text matching a deleted entry should be accepted")
	}
}

func TestLedger_MetadataRecorded(t *testing.T) {
	ledger := newTestLedger()

	accepted := ledger.Submit("agent-1", "A", []string{"Finding with step context"}, Metadata{
		StepTitle: "Analyze filings",
		Phase:     3,
	})

	if accepted[0].StepTitle != "Analyze filings" {
		t.Errorf("expected step title recorded, got %q", accepted[0].StepTitle)
	}
	if accepted[0].Phase != 3 {
		t.Errorf("expected phase 3, got %d", accepted[0].Phase)
	}
}

func TestLedger_ConcurrentSubmissionsOfSameFact(t *testing.T) {
	ledger := newTestLedger()

	// Many agents race to report the same fact. Because reject-or-append
	// is atomic, exactly one copy must survive.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ledger.Submit(fmt.Sprintf("agent-%d", i), "Racer", []string{
				"Regulatory approval expected before fiscal year close",
			}, Metadata{})
		}(i)
	}
	wg.Wait()

	if ledger.Len() != 1 {
		t.Errorf("lost-update race: expected exactly 1 entry, got %d", ledger.Len())
	}
}
