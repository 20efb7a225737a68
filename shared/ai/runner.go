package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"trendwatch/internal/models"
	"trendwatch/shared/config"
)

// AgentTask is one generation step: an agent persona (role, goal, backstory)
// plus a task description and the input context it should work over. The
// model backend behind it is opaque to callers.
type AgentTask struct {
	Role           string
	Goal           string
	Backstory      string
	Description    string
	ExpectedOutput string
	Context        string
}

// Runner executes agent tasks against some model backend.
type Runner interface {
	RunAgentTask(ctx context.Context, task AgentTask) (string, error)
}

// NewRunner builds the configured backend. The provider is a config value,
// never a compile-time choice.
func NewRunner(ctx context.Context, cfg *config.AIConfig) (Runner, error) {
	switch cfg.Provider {
	case "gemini":
		return newGeminiRunner(ctx, cfg)
	case "openrouter":
		return newOpenRouterRunner(cfg), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

func buildPrompt(task AgentTask) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are %s.\n", task.Role))
	if task.Backstory != "" {
		sb.WriteString(task.Backstory + "\n")
	}
	if task.Goal != "" {
		sb.WriteString(fmt.Sprintf("Your goal: %s\n", task.Goal))
	}
	sb.WriteString("\nTASK:\n" + task.Description + "\n")
	if task.Context != "" {
		sb.WriteString("\nINPUT:\n" + task.Context + "\n")
	}
	if task.ExpectedOutput != "" {
		sb.WriteString("\nEXPECTED OUTPUT:\n" + task.ExpectedOutput + "\n")
	}
	return sb.String()
}

// retryRunner retries transient backend failures with the same input a
// bounded number of times. Non-transient failures (bad credentials, invalid
// model) are returned immediately.
type retryRunner struct {
	inner    Runner
	attempts int
	backoff  time.Duration
}

// WithRetry wraps inner so transient failures are retried up to attempts
// times in total.
func WithRetry(inner Runner, attempts int) Runner {
	if attempts < 1 {
		attempts = 1
	}
	return &retryRunner{inner: inner, attempts: attempts, backoff: 2 * time.Second}
}

func (r *retryRunner) RunAgentTask(ctx context.Context, task AgentTask) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		out, err := r.inner.RunAgentTask(ctx, task)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !models.IsTransient(err) {
			return "", err
		}
		if attempt == r.attempts {
			break
		}
		log.Printf("Model call failed (attempt %d/%d), retrying: %v", attempt, r.attempts, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return "", fmt.Errorf("model call failed after %d attempts: %w", r.attempts, lastErr)
}
