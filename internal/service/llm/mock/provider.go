// Package mock provides a mock language-model provider for running the
// pipeline without API credentials.
package mock

import (
	"context"
	"sync"

	"ai-voice-agent-service/internal/models"
)

// DefaultReplies is the canned reply script, cycled per provider instance.
var DefaultReplies = []string{
	"Sure, I can help with that.",
	"Let me check that for you. One moment please.",
	"I found it. Is there anything else you would like to know?",
	"Of course. Anything else I can do for you?",
	"You're welcome. Have a great day!",
}

// Provider implements llm.Provider with scripted replies.
type Provider struct {
	mu      sync.Mutex
	replies []string
	next    int
}

// New creates a mock provider with the default script.
func New() *Provider {
	return &Provider{replies: DefaultReplies}
}

// Chat returns the next scripted reply, ignoring the history.
func (p *Provider) Chat(ctx context.Context, history []models.Turn) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reply := p.replies[p.next%len(p.replies)]
	p.next++
	return reply, nil
}
