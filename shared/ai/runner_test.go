package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"trendwatch/internal/models"
)

type scriptedRunner struct {
	calls     int
	responses []string
	errs      []error
}

func (s *scriptedRunner) RunAgentTask(ctx context.Context, task AgentTask) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.errs) {
		i = len(s.errs) - 1
	}
	return s.responses[i], s.errs[i]
}

func newRetryForTest(inner Runner, attempts int) *retryRunner {
	return &retryRunner{inner: inner, attempts: attempts, backoff: time.Millisecond}
}

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	inner := &scriptedRunner{
		responses: []string{"", "", "ok"},
		errs:      []error{models.Transient(errors.New("503")), models.Transient(errors.New("503")), nil},
	}
	runner := newRetryForTest(inner, 3)

	out, err := runner.RunAgentTask(context.Background(), AgentTask{Role: "analyst", Description: "noop"})
	if err != nil {
		t.Fatalf("RunAgentTask failed: %v", err)
	}
	if out != "ok" {
		t.Errorf("got %q, want %q", out, "ok")
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
}

func TestWithRetryDoesNotRetryPermanentFailure(t *testing.T) {
	inner := &scriptedRunner{
		responses: []string{""},
		errs:      []error{errors.New("invalid API key")},
	}
	runner := newRetryForTest(inner, 3)

	if _, err := runner.RunAgentTask(context.Background(), AgentTask{Role: "analyst"}); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	inner := &scriptedRunner{
		responses: []string{""},
		errs:      []error{fmt.Errorf("over quota: %w", models.ErrQuotaExceeded)},
	}
	runner := newRetryForTest(inner, 3)

	_, err := runner.RunAgentTask(context.Background(), AgentTask{Role: "analyst"})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, models.ErrQuotaExceeded) {
		t.Errorf("exhaustion error should wrap the last failure, got: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
}

func TestBuildPromptIncludesAllSections(t *testing.T) {
	prompt := buildPrompt(AgentTask{
		Role:           "a market analyst",
		Goal:           "extract themes",
		Backstory:      "You have a decade of experience.",
		Description:    "Analyze the transcript.",
		ExpectedOutput: "JSON with themes",
		Context:        "some transcript text",
	})

	for _, want := range []string{
		"You are a market analyst.",
		"extract themes",
		"decade of experience",
		"TASK:",
		"Analyze the transcript.",
		"INPUT:",
		"some transcript text",
		"EXPECTED OUTPUT:",
		"JSON with themes",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
