package session

import (
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle()

	if lc.State() != StateStarting {
		t.Errorf("expected StateStarting, got %v", lc.State())
	}
	if !lc.AcceptsMedia() {
		t.Error("expected AcceptsMedia to be true while starting")
	}
}

func TestLifecycle_Activate(t *testing.T) {
	lc := NewLifecycle()

	if err := lc.Activate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lc.State() != StateActive {
		t.Errorf("expected StateActive, got %v", lc.State())
	}
	if !lc.AcceptsMedia() {
		t.Error("expected AcceptsMedia to be true while active")
	}
}

func TestLifecycle_Activate_Idempotent(t *testing.T) {
	lc := NewLifecycle()

	if err := lc.Activate(); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	if err := lc.Activate(); err != nil {
		t.Errorf("second activate: unexpected error: %v", err)
	}
}

func TestLifecycle_Activate_FailsAfterEnding(t *testing.T) {
	lc := NewLifecycle()
	lc.BeginEnding()

	if err := lc.Activate(); err != ErrSessionEnded {
		t.Errorf("expected ErrSessionEnded, got %v", err)
	}
}

func TestLifecycle_BeginEnding_FirstCallOnly(t *testing.T) {
	lc := NewLifecycle()
	lc.Activate()

	if !lc.BeginEnding() {
		t.Error("expected first BeginEnding to return true")
	}
	if lc.BeginEnding() {
		t.Error("expected second BeginEnding to return false")
	}
	if lc.State() != StateEnding {
		t.Errorf("expected StateEnding, got %v", lc.State())
	}
	if lc.AcceptsMedia() {
		t.Error("expected AcceptsMedia to be false while ending")
	}
}

func TestLifecycle_BeginEnding_BeforeActivate(t *testing.T) {
	lc := NewLifecycle()

	// A call may be torn down before the connector ever came up.
	if !lc.BeginEnding() {
		t.Error("expected BeginEnding to return true from STARTING")
	}
}

func TestLifecycle_Finish(t *testing.T) {
	lc := NewLifecycle()
	lc.Activate()
	lc.BeginEnding()
	lc.Finish()

	if lc.State() != StateEnded {
		t.Errorf("expected StateEnded, got %v", lc.State())
	}
	if !lc.State().IsTerminal() {
		t.Error("expected ENDED to be terminal")
	}
	if lc.BeginEnding() {
		t.Error("expected BeginEnding to return false after Finish")
	}
}

func TestLifecycle_Finish_Idempotent(t *testing.T) {
	lc := NewLifecycle()
	lc.Finish()
	lc.Finish()

	if lc.State() != StateEnded {
		t.Errorf("expected StateEnded, got %v", lc.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateStarting, "STARTING"},
		{StateActive, "ACTIVE"},
		{StateEnding, "ENDING"},
		{StateEnded, "ENDED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}
