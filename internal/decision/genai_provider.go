package decision

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"journeyagent/internal/logging"
)

// GenAIProvider decides by sending a screenshot and the assembled prompt to
// a Gemini vision model and parsing its JSON reply, the way the embedding
// engine constructs and calls genai.Client, generalized here from
// embeddings to a vision+text generation call.
type GenAIProvider struct {
	client      *genai.Client
	model       string
	personaBase string
	retry       retryConfig
}

// NewGenAIProvider creates a vision-LLM-backed Provider.
func NewGenAIProvider(apiKey, model, personaBase string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAIProvider{
		client:      client,
		model:       model,
		personaBase: personaBase,
		retry:       defaultRetryConfig(),
	}, nil
}

// Decide implements Provider using a vision model call per turn, wrapped in
// the 3-attempt linear backoff retry, never propagating an error: a
// persistent failure degrades to a wait Decision instead.
func (p *GenAIProvider) Decide(ctx context.Context, req Request) (Decision, error) {
	prompt := buildPrompt(req, p.personaBase)

	resp, err := withRetry(ctx, p.retry, "decision round", func(ctx context.Context) (string, error) {
		return p.generate(ctx, prompt, req.Screenshot)
	})
	if err != nil {
		logging.DecisionError("decision round failed permanently: %v", err)
		return fallbackDecision(err), nil
	}

	d, err := parseDecision(resp)
	if err != nil {
		logging.DecisionWarn("decision response was not parseable: %v", err)
		return Decision{Action: ActionWait, Thought: "The model's response wasn't understandable; waiting and trying again."}, nil
	}

	logging.DecisionDebug("decision: action=%s target=%s", d.Action, d.TargetID)
	return d, nil
}

func (p *GenAIProvider) generate(ctx context.Context, prompt string, screenshot []byte) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(screenshot) > 0 {
		parts = append(parts, genai.NewPartFromBytes(screenshot, "image/png"))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("genai generate failed: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("genai returned no candidates")
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("genai candidate had no text content")
	}
	return text, nil
}
