package httpapi

import (
	"context"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"journeyagent/internal/config"
)

// ModelInfo is one entry of the GET /models response.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// fallbackModels is returned whenever the upstream catalogue call fails,
// matching spec.md §6's explicit fallback requirement.
var fallbackModels = []ModelInfo{
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro"},
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash"},
}

// listModels queries the configured genai upstream for its current model
// catalogue, falling back to a static list on any failure (missing API
// key, network error, upstream outage).
func listModels(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) ([]ModelInfo, string) {
	apiKey := os.Getenv(cfg.APIKeyEnvVar)
	if apiKey == "" {
		return fallbackModels, "fallback"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		if logger != nil {
			logger.Warn("genai client init failed, using fallback models", zap.Error(err))
		}
		return fallbackModels, "fallback"
	}

	pager := client.Models.List(ctx, &genai.ListModelsConfig{})
	var models []ModelInfo
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			break
		}
		for _, m := range page {
			models = append(models, ModelInfo{ID: m.Name, Name: m.DisplayName})
		}
	}
	if len(models) == 0 {
		return fallbackModels, "fallback"
	}
	return models, "upstream"
}
