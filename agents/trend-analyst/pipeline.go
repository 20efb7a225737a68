package trendanalyst

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"trendwatch/internal/models"
	"trendwatch/shared/ai"
	"trendwatch/shared/config"
)

// Transcripts beyond this are cut before prompting; enough for well over an
// hour of speech.
const maxTranscriptChars = 24000

// AgentPipeline is the two-stage task graph: the analysis agent extracts
// themes from every usable transcript, then the synthesis agent turns the
// collected themes into one Markdown report. The stages are strictly
// sequential with the handoff by value; the synthesizer never observes
// partial analysis state.
type AgentPipeline struct {
	runner  ai.Runner
	prompts *config.PromptsConfig

	mu    sync.Mutex
	state PipelineState
}

func NewAgentPipeline(runner ai.Runner, prompts *config.PromptsConfig) *AgentPipeline {
	return &AgentPipeline{
		runner:  runner,
		prompts: prompts,
		state:   StateIdle,
	}
}

func (p *AgentPipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *AgentPipeline) transition(session *RunSession, state PipelineState, failure string) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
	session.setState(state, failure)
}

// Run executes both stages against the session's usable transcripts. With
// zero usable transcripts the pipeline fails fast with ErrNoUsableInput and
// makes no model call at all.
func (p *AgentPipeline) Run(ctx context.Context, session *RunSession) error {
	records := session.UsableRecords()
	if len(records) == 0 {
		p.transition(session, StateErrored, models.ErrNoUsableInput.Error())
		return models.ErrNoUsableInput
	}

	p.transition(session, StateAnalyzing, "")
	analysis, err := p.analyze(ctx, records)
	if err != nil {
		p.transition(session, StateErrored, fmt.Sprintf("analysis stage: %v", err))
		return fmt.Errorf("analysis stage failed: %w", err)
	}
	session.SetAnalysis(analysis)
	p.transition(session, StateAnalyzed, "")

	// Cancellation between the stages discards the run without a report;
	// transcripts persisted so far remain valid cache entries.
	if err := ctx.Err(); err != nil {
		p.transition(session, StateErrored, err.Error())
		return err
	}

	p.transition(session, StateSynthesizing, "")
	report, err := p.synthesize(ctx, analysis)
	if err != nil {
		// The analysis output stays in the session for diagnostics; no
		// partial report is emitted.
		p.transition(session, StateErrored, fmt.Sprintf("synthesis stage: %v", err))
		return fmt.Errorf("synthesis stage failed: %w", err)
	}
	session.SetReport(report)
	p.transition(session, StateDone, "")
	return nil
}

func (p *AgentPipeline) analyze(ctx context.Context, records []*models.TranscriptRecord) (models.AnalysisResult, error) {
	var result models.AnalysisResult
	var failures int

	for i, rec := range records {
		log.Printf("Analyzing transcript %d/%d: %s (%s)", i+1, len(records), rec.Title, rec.ChannelTitle)
		themes, err := p.analyzeOne(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				return models.AnalysisResult{}, ctx.Err()
			}
			failures++
			log.Printf("Warning: failed to analyze video %s (%s): %v", rec.VideoID, rec.Title, err)
			continue
		}
		result.Videos = append(result.Videos, themes)
	}

	if len(result.Videos) == 0 {
		return models.AnalysisResult{}, fmt.Errorf("all %d transcript analyses failed", len(records))
	}
	if failures > 0 {
		log.Printf("Analysis stage completed with %d/%d failures", failures, len(records))
	}
	return result, nil
}

func (p *AgentPipeline) analyzeOne(ctx context.Context, rec *models.TranscriptRecord) (models.VideoThemes, error) {
	prompt := p.prompts.Analysis
	input := fmt.Sprintf("Channel: %s\nVideo: %s\nPublished: %s\n\nTranscript:\n%s",
		rec.ChannelTitle, rec.Title, rec.PublishedAt.Format("2006-01-02"),
		truncateTranscript(rec.Transcript, maxTranscriptChars))

	response, err := p.runner.RunAgentTask(ctx, ai.AgentTask{
		Role:           prompt.Role,
		Goal:           prompt.Goal,
		Backstory:      prompt.Backstory,
		Description:    prompt.Task,
		ExpectedOutput: prompt.ExpectedOutput,
		Context:        input,
	})
	if err != nil {
		return models.VideoThemes{}, err
	}

	jsonStr, err := ai.ExtractJSON(response)
	if err != nil {
		return models.VideoThemes{}, err
	}

	var parsed struct {
		Themes  []string `json:"themes"`
		Summary string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		if retryErr := json.Unmarshal([]byte(ai.SanitizeJSON(jsonStr)), &parsed); retryErr != nil {
			return models.VideoThemes{}, fmt.Errorf("failed to unmarshal analysis JSON: %w (sanitized version also failed: %v)", err, retryErr)
		}
		log.Printf("Warning: had to sanitize malformed JSON for video %s", rec.VideoID)
	}
	if len(parsed.Themes) == 0 {
		return models.VideoThemes{}, fmt.Errorf("analysis returned no themes")
	}

	return models.VideoThemes{
		VideoID:      rec.VideoID,
		ChannelID:    rec.ChannelID,
		ChannelTitle: rec.ChannelTitle,
		Title:        rec.Title,
		Themes:       parsed.Themes,
		Summary:      parsed.Summary,
	}, nil
}

func (p *AgentPipeline) synthesize(ctx context.Context, analysis models.AnalysisResult) (string, error) {
	prompt := p.prompts.Synthesis

	// Group per channel so the synthesizer can attribute trends to sources.
	order, grouped := analysis.ByChannel()
	var sb strings.Builder
	for _, channel := range order {
		fmt.Fprintf(&sb, "## %s\n", channel)
		for _, video := range grouped[channel] {
			fmt.Fprintf(&sb, "- %q (video %s)\n  themes: %s\n", video.Title, video.VideoID, strings.Join(video.Themes, "; "))
			if video.Summary != "" {
				fmt.Fprintf(&sb, "  summary: %s\n", video.Summary)
			}
		}
		sb.WriteString("\n")
	}

	response, err := p.runner.RunAgentTask(ctx, ai.AgentTask{
		Role:           prompt.Role,
		Goal:           prompt.Goal,
		Backstory:      prompt.Backstory,
		Description:    prompt.Task,
		ExpectedOutput: prompt.ExpectedOutput,
		Context:        sb.String(),
	})
	if err != nil {
		return "", err
	}

	report := stripCodeFence(strings.TrimSpace(response))
	if report == "" {
		return "", fmt.Errorf("synthesis produced an empty report")
	}
	return report, nil
}

func truncateTranscript(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "\n[transcript truncated]"
}

// stripCodeFence unwraps a report the model wrapped in ```markdown fences.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	trimmed := strings.TrimPrefix(s, "```")
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
