package ai

import (
	"context"
	"fmt"
	"strings"

	"trendwatch/internal/models"
	"trendwatch/shared/config"

	"google.golang.org/genai"
)

type geminiRunner struct {
	client *genai.Client
	model  string
}

func newGeminiRunner(ctx context.Context, cfg *config.AIConfig) (*geminiRunner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiRunner{client: client, model: cfg.Model}, nil
}

func (g *geminiRunner) RunAgentTask(ctx context.Context, task AgentTask) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(buildPrompt(task)),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		if isGeminiTransient(err) {
			return "", models.Transient(fmt.Errorf("gemini call failed: %w", err))
		}
		return "", fmt.Errorf("gemini call failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		// Empty text usually means content filtering or a truncated response;
		// worth one more try with the same input.
		return "", models.Transient(fmt.Errorf("empty response from model %s", g.model))
	}
	return text, nil
}

func isGeminiTransient(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"429", "RESOURCE_EXHAUSTED", "rate limit", "503", "UNAVAILABLE", "500", "INTERNAL", "deadline exceeded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
