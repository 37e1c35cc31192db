package agent

import "testing"

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecord(Spec{Name: "Analyst", Objective: "obj"})

	if err := store.SaveAgentState(rec.ID, rec); err != nil {
		t.Fatalf("SaveAgentState failed: %v", err)
	}

	got, ok := store.GetAgentState(rec.ID)
	if !ok {
		t.Fatal("expected saved record")
	}
	if got.Name != "Analyst" || got.Status != StatusQueued {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestMemoryStore_MissReturnsFalse(t *testing.T) {
	store := NewMemoryStore()
	if _, ok := store.GetAgentState("nope"); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecord(Spec{Objective: "obj", Tools: []string{"search"}})
	_ = store.SaveAgentState(rec.ID, rec)

	got, _ := store.GetAgentState(rec.ID)
	got.Tools[0] = "mutated"

	again, _ := store.GetAgentState(rec.ID)
	if again.Tools[0] != "search" {
		t.Error("store must not share slices with callers")
	}
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemoryStore()
	a := NewRecord(Spec{Objective: "a"})
	b := NewRecord(Spec{Objective: "b"})
	_ = store.SaveAgentState(a.ID, a)
	_ = store.SaveAgentState(b.ID, b)

	if got := len(store.List()); got != 2 {
		t.Errorf("expected 2 records, got %d", got)
	}
}
