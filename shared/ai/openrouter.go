package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"trendwatch/internal/models"
	"trendwatch/shared/config"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// openRouterRunner talks to OpenRouter (or any OpenAI-compatible endpoint)
// through the go-openai client with a custom base URL.
type openRouterRunner struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

func newOpenRouterRunner(cfg *config.AIConfig) *openRouterRunner {
	clientConfig := openai.DefaultConfig(cfg.OpenRouterAPIKey)
	clientConfig.BaseURL = cfg.OpenRouterURL

	return &openRouterRunner{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(1), 2),
	}
}

func (o *openRouterRunner) RunAgentTask(ctx context.Context, task AgentTask) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	system := fmt.Sprintf("You are %s. %s Your goal: %s", task.Role, task.Backstory, task.Goal)
	user := task.Description
	if task.Context != "" {
		user += "\n\nINPUT:\n" + task.Context
	}
	if task.ExpectedOutput != "" {
		user += "\n\nEXPECTED OUTPUT:\n" + task.ExpectedOutput
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		if isOpenAITransient(err) {
			return "", models.Transient(fmt.Errorf("openrouter call failed: %w", err))
		}
		return "", fmt.Errorf("openrouter call failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", models.Transient(fmt.Errorf("empty response from model %s", o.model))
	}
	return resp.Choices[0].Message.Content, nil
}

func isOpenAITransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	// Plain transport errors are retryable too.
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return true
}
