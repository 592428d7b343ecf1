// Package llm defines the language-model chat contract.
package llm

import (
	"context"

	"ai-voice-agent-service/internal/models"
)

// Provider generates the assistant's next reply from the bounded
// conversation history (seed persona turns first, newest turn last).
// A single synchronous call that may fail with a transient or permanent
// error; the orchestrator owns the recovery policy.
type Provider interface {
	Chat(ctx context.Context, history []models.Turn) (string, error)
}
