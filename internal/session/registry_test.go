package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewRegistry()

	s, err := r.Create("CA1", "MZ1", seedTurns())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CallID != "CA1" || s.StreamID != "MZ1" {
		t.Errorf("unexpected identifiers: %s/%s", s.CallID, s.StreamID)
	}
	if got := r.Get("CA1"); got != s {
		t.Error("expected Get to return the created session")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", r.Len())
	}
}

func TestRegistry_Create_DuplicateCallID(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Create("CA1", "MZ1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Create("CA1", "MZ2", nil); err != ErrDuplicateCall {
		t.Errorf("expected ErrDuplicateCall, got %v", err)
	}
}

func TestRegistry_Get_Unknown(t *testing.T) {
	r := NewRegistry()

	if got := r.Get("nope"); got != nil {
		t.Errorf("expected nil for unknown call, got %v", got)
	}
}

func TestRegistry_Remove_Idempotent(t *testing.T) {
	r := NewRegistry()
	r.Create("CA1", "MZ1", nil)

	first := r.Remove("CA1")
	if first == nil {
		t.Fatal("expected first Remove to return the session")
	}

	// A double stop signal must not double-archive.
	second := r.Remove("CA1")
	if second != nil {
		t.Error("expected second Remove to return nil")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			callID := fmt.Sprintf("CA%d", n)
			if _, err := r.Create(callID, "MZ", nil); err != nil {
				t.Errorf("create %s: %v", callID, err)
				return
			}
			r.Get(callID)
			r.Snapshot()
			if removed := r.Remove(callID); removed == nil {
				t.Errorf("remove %s returned nil", callID)
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	r.Create("CA1", "MZ1", nil)
	r.Create("CA2", "MZ2", nil)

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Errorf("expected 2 sessions in snapshot, got %d", len(snap))
	}
}
