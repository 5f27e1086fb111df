package speech

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"journeyagent/internal/logging"
)

// Synthesizer turns text into audio bytes plus the mime type describing
// their encoding.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (audio []byte, mime string, err error)
}

// GenAISynthesizer calls Gemini's TTS-capable models, the same
// genai.NewClient construction the embedding engine uses, generalized to
// audio generation. It tries each candidate model in order and falls
// through to the next on failure, the way the researcher shard degrades
// through fallback strategies instead of failing outright.
type GenAISynthesizer struct {
	client *genai.Client
	models []string
}

// defaultModels is the sequential fallback order: the current model first,
// then progressively older/cheaper ones.
var defaultModels = []string{
	"gemini-2.5-flash-preview-tts",
	"gemini-2.0-flash-preview-tts",
}

// NewGenAISynthesizer creates a TTS client. models overrides the fallback
// order when non-empty.
func NewGenAISynthesizer(apiKey string, models []string) (*GenAISynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai API key is required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if len(models) == 0 {
		models = defaultModels
	}
	return &GenAISynthesizer{client: client, models: models}, nil
}

// Synthesize tries each configured model in order, returning the first
// successful result.
func (g *GenAISynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, string, error) {
	var lastErr error
	for _, model := range g.models {
		audio, mime, err := g.synthesizeWith(ctx, model, text, voice)
		if err == nil {
			return audio, mime, nil
		}
		logging.SpeechWarn("TTS model %s failed: %v", model, err)
		lastErr = err
	}
	return nil, "", fmt.Errorf("all TTS models failed, last error: %w", lastErr)
}

func (g *GenAISynthesizer) synthesizeWith(ctx context.Context, model, text, voice string) ([]byte, string, error) {
	speechConfig := &genai.SpeechConfig{}
	if voice != "" {
		speechConfig.VoiceConfig = &genai.VoiceConfig{
			PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
		}
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := g.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig:       speechConfig,
	})
	if err != nil {
		return nil, "", fmt.Errorf("generate content failed: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, "", fmt.Errorf("no audio candidate returned")
	}

	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, part.InlineData.MIMEType, nil
		}
	}
	return nil, "", fmt.Errorf("no inline audio data in response")
}
