// Package gemini provides a Gemini language-model provider.
package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"ai-voice-agent-service/internal/models"
)

// Config holds Gemini client settings.
type Config struct {
	APIKey string
	Model  string
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Provider implements llm.Provider using the Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// New creates a Gemini provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Provider{client: client, model: model}, nil
}

// Chat sends the conversation history and returns the generated reply text.
// System turns become the system instruction; user and assistant turns map
// to the Gemini user/model roles.
func (p *Provider) Chat(ctx context.Context, history []models.Turn) (string, error) {
	var sys []string
	contents := make([]*genai.Content, 0, len(history))

	for _, t := range history {
		switch t.Role {
		case models.RoleSystem:
			sys = append(sys, t.Text)
		case models.RoleUser:
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleUser))
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleModel))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if len(sys) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(sys, "\n"), genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned an empty reply")
	}
	return text, nil
}
