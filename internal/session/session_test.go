package session

import (
	"fmt"
	"testing"

	"ai-voice-agent-service/internal/models"
)

func seedTurns() []models.Turn {
	return []models.Turn{
		models.NewTurn(models.RoleSystem, "You are a phone agent."),
		models.NewTurn(models.RoleSystem, "Speak plainly."),
	}
}

func TestSession_AppendAndHistory(t *testing.T) {
	s := New("CA1", "MZ1", seedTurns())

	s.Append(models.NewTurn(models.RoleUser, "hello"))
	s.Append(models.NewTurn(models.RoleAssistant, "hi there"))

	history := s.History()
	if len(history) != 4 {
		t.Fatalf("expected 4 history turns, got %d", len(history))
	}
	if history[2].Role != models.RoleUser || history[2].Text != "hello" {
		t.Errorf("unexpected turn at index 2: %+v", history[2])
	}
}

func TestSession_Transcript_ExcludesSeeds(t *testing.T) {
	s := New("CA1", "MZ1", seedTurns())
	s.Append(models.NewTurn(models.RoleAssistant, "greeting"))
	s.Append(models.NewTurn(models.RoleUser, "hello"))

	transcript := s.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected 2 transcript turns, got %d", len(transcript))
	}
	for _, turn := range transcript {
		if turn.Role == models.RoleSystem {
			t.Errorf("seed turn leaked into transcript: %+v", turn)
		}
	}
}

func TestSession_Transcript_Ordered(t *testing.T) {
	s := New("CA1", "MZ1", seedTurns())
	for i := 0; i < 5; i++ {
		s.Append(models.NewTurn(models.RoleUser, fmt.Sprintf("u%d", i)))
		s.Append(models.NewTurn(models.RoleAssistant, fmt.Sprintf("a%d", i)))
	}

	transcript := s.Transcript()
	for i := 1; i < len(transcript); i++ {
		if transcript[i].Timestamp.Before(transcript[i-1].Timestamp) {
			t.Errorf("turn %d timestamp precedes turn %d", i, i-1)
		}
	}
	for i := 0; i < 5; i++ {
		if transcript[2*i].Text != fmt.Sprintf("u%d", i) {
			t.Errorf("expected user turn u%d at index %d, got %q", i, 2*i, transcript[2*i].Text)
		}
		if transcript[2*i+1].Text != fmt.Sprintf("a%d", i) {
			t.Errorf("expected assistant turn a%d after u%d, got %q", i, i, transcript[2*i+1].Text)
		}
	}
}

func TestSession_Prune_KeepsSeeds(t *testing.T) {
	const max = 6
	s := New("CA1", "MZ1", seedTurns())

	for i := 0; i < 20; i++ {
		s.Append(models.NewTurn(models.RoleUser, fmt.Sprintf("turn-%d", i)))
		s.Prune(max)
		if got := len(s.History()); got > max {
			t.Fatalf("history length %d exceeds max %d after append %d", got, max, i)
		}
	}

	history := s.History()
	if history[0].Role != models.RoleSystem || history[1].Role != models.RoleSystem {
		t.Error("seed turns not at head after pruning")
	}
	// Newest turns survive.
	if history[len(history)-1].Text != "turn-19" {
		t.Errorf("expected newest turn last, got %q", history[len(history)-1].Text)
	}
}

func TestSession_Prune_NeverDropsBelowSeeds(t *testing.T) {
	s := New("CA1", "MZ1", seedTurns())
	s.Append(models.NewTurn(models.RoleUser, "only"))

	s.Prune(1) // max below seed count
	if got := len(s.History()); got != 2 {
		t.Errorf("expected seeds to survive, got %d turns", got)
	}
}

func TestSession_TrySpeak(t *testing.T) {
	s := New("CA1", "MZ1", nil)

	if !s.TrySpeak() {
		t.Fatal("expected first TrySpeak to succeed")
	}
	if s.TrySpeak() {
		t.Error("expected second TrySpeak to fail while speaking")
	}
	if !s.Speaking() {
		t.Error("expected Speaking to be true")
	}

	s.EndSpeak()
	if !s.TrySpeak() {
		t.Error("expected TrySpeak to succeed after EndSpeak")
	}
}

func TestSession_RequestStop_Once(t *testing.T) {
	s := New("CA1", "MZ1", nil)

	calls := 0
	s.SetStopper(func() { calls++ })

	s.RequestStop()
	s.RequestStop()
	s.RequestStop()

	if calls != 1 {
		t.Errorf("expected stopper to run once, ran %d times", calls)
	}
}

func TestSession_MarkEnded_FirstStampWins(t *testing.T) {
	s := New("CA1", "MZ1", nil)

	s.MarkEnded()
	first := s.EndedAt()
	s.MarkEnded()

	if !s.EndedAt().Equal(first) {
		t.Error("expected second MarkEnded to keep the first timestamp")
	}
}
