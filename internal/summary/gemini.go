package summary

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures the optional model-written narrative.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

const defaultModel = "gemini-2.0-flash"

// Narrator turns the deterministic run summary into a short prose paragraph
// for the review evidence package.
type Narrator struct {
	client *genai.Client
	model  string
}

// NewNarrator builds a Gemini-backed narrator.
func NewNarrator(ctx context.Context, cfg GeminiConfig) (*Narrator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Narrator{client: client, model: model}, nil
}

// Narrate produces the prose paragraph. The prompt carries only the
// aggregate counts from Text; on any model failure the caller should fall
// back to the deterministic summary.
func (n *Narrator) Narrate(ctx context.Context, info RunInfo) (string, error) {
	prompt := buildPrompt(info)
	resp, err := n.client.Models.GenerateContent(
		ctx,
		n.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{CandidateCount: 1},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate summary: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: empty summary response")
	}
	return text, nil
}

func buildPrompt(info RunInfo) string {
	// Aggregate counts only. No usernames, emails, or row contents may be
	// added to this prompt.
	return strings.TrimSpace(`
You are writing one short paragraph for an access-review evidence package.
Summarize the following identity-resolution run in plain, factual prose for
an auditor. Do not speculate, do not add recommendations, and do not invent
numbers that are not given.

Run statistics:
` + Text(info) + `
`)
}
