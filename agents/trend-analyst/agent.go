package trendanalyst

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trendwatch/agents/trend-analyst/youtube"
	"trendwatch/internal/models"
	"trendwatch/shared/ai"
	"trendwatch/shared/config"
	"trendwatch/shared/email"
	"trendwatch/shared/scheduler"
	"trendwatch/shared/storage"
)

// TrendMetrics summarizes one run for the scheduler's monitoring hooks.
type TrendMetrics struct {
	Channels       int  `json:"channels"`
	FailedChannels int  `json:"failed_channels"`
	Videos         int  `json:"videos"`
	Transcripts    int  `json:"transcripts"`
	ReportWritten  bool `json:"report_written"`
}

// GetSummary implements the scheduler.Metrics interface.
func (m TrendMetrics) GetSummary() string {
	return fmt.Sprintf("scraped %d channels (%d failed), %d videos, %d transcripts, report=%v",
		m.Channels, m.FailedChannels, m.Videos, m.Transcripts, m.ReportWritten)
}

// TrendAgent implements the scheduler.Agent interface. Each run scrapes the
// configured channels over the configured window and pushes the transcripts
// through the two-stage pipeline.
type TrendAgent struct {
	config        *config.Config
	youtubeClient *youtube.Client
	transcripts   *storage.TranscriptStore
	runner        ai.Runner
	emailSender   *email.Sender
	coordinator   *ScrapeCoordinator

	mu          sync.RWMutex
	lastSession *RunSession
}

func NewTrendAgent(cfg *config.Config) *TrendAgent {
	return &TrendAgent{config: cfg}
}

func (a *TrendAgent) Name() string {
	return "Trend Analyst"
}

func (a *TrendAgent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())
	ctx := context.Background()

	if a.youtubeClient == nil {
		client, err := youtube.NewClient(ctx, &a.config.YouTube)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		a.youtubeClient = client
		log.Println("YouTube client initialized")
	}

	if a.runner == nil {
		runner, err := ai.NewRunner(ctx, &a.config.AI)
		if err != nil {
			return fmt.Errorf("failed to create AI runner: %w", err)
		}
		a.runner = ai.WithRetry(runner, a.config.AI.MaxRetries)
		log.Printf("AI runner initialized (provider=%s model=%s)", a.config.AI.Provider, a.config.AI.Model)
	}

	if a.transcripts == nil {
		var fetcher storage.TranscriptFetcher
		if a.config.Scrape.QuickMode {
			log.Println("Quick mode enabled: transcripts replaced with video metadata")
			fetcher = metadataFetcher{}
		} else {
			fetcher = youtube.NewTranscriptClient(&a.config.Scrape)
		}
		store, err := storage.NewTranscriptStore(a.config.Scrape.DataDir, fetcher)
		if err != nil {
			return fmt.Errorf("failed to create transcript store: %w", err)
		}
		a.transcripts = store
		log.Println("Transcript store initialized")
	}

	if a.coordinator == nil {
		a.coordinator = NewScrapeCoordinator(a.youtubeClient, a.youtubeClient, a.transcripts, &a.config.Scrape)
	}

	if a.emailSender == nil && a.config.Email.Enabled {
		a.emailSender = email.NewSender(&a.config.Email)
		log.Println("Email sender initialized")
	}

	return nil
}

func (a *TrendAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	dateRange := models.LastDays(a.config.Scrape.WindowDays)

	session := NewRunSession(a.config.Scrape.Channels, dateRange)
	a.mu.Lock()
	a.lastSession = session
	a.mu.Unlock()

	log.Printf("Scraping %d channels (%s to %s)...",
		len(a.config.Scrape.Channels),
		dateRange.Since.Format("2006-01-02"), dateRange.Until.Format("2006-01-02"))

	if err := a.coordinator.Scrape(ctx, session); err != nil {
		return fmt.Errorf("scrape cancelled: %w", err)
	}

	status := session.Status()
	metrics := TrendMetrics{Channels: len(status.Channels), Transcripts: status.Transcripts}
	for _, outcome := range status.Channels {
		metrics.Videos += outcome.Videos
		if outcome.Failed() {
			metrics.FailedChannels++
		}
		log.Printf("Channel %s: %s (%d videos, %d transcripts)",
			outcome.Reference, outcome.Status, outcome.Videos, outcome.Transcripts)
	}

	pipeline := NewAgentPipeline(a.runner, &a.config.Prompts)
	if err := pipeline.Run(ctx, session); err != nil {
		duration := time.Since(startTime)
		if errors.Is(err, models.ErrNoUsableInput) {
			log.Println("No usable transcripts this run, skipping report")
			if events != nil && events.OnPartialFailure != nil {
				events.OnPartialFailure(err, duration)
			}
			return nil
		}
		return fmt.Errorf("pipeline failed: %w", err)
	}

	status = session.Status()
	reportPath, err := a.writeReport(status)
	if err != nil {
		log.Printf("Warning: failed to write report file: %v", err)
	} else {
		metrics.ReportWritten = true
		log.Printf("Report written to %s", reportPath)
	}

	if a.emailSender != nil {
		subject := fmt.Sprintf("YouTube Trend Report (%s)", status.GeneratedAt.Format("Jan 2, 2006"))
		if err := a.emailSender.SendReport(subject, status.Report); err != nil {
			log.Printf("Warning: failed to send report email: %v", err)
		} else {
			log.Println("Report email sent")
		}
	}

	duration := time.Since(startTime)
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}
	log.Printf("Run complete: %s (took %v)", metrics.GetSummary(), duration)
	return nil
}

// LastSession exposes the most recent run to the presentation layer. Its
// Status() is the only read interface the core offers.
func (a *TrendAgent) LastSession() *RunSession {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastSession
}

func (a *TrendAgent) writeReport(status Status) (string, error) {
	dir := a.config.Scrape.ReportDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("trend-report-%s.md", status.GeneratedAt.Format("2006-01-02")))
	if err := os.WriteFile(path, []byte(status.Report), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// metadataFetcher stands in for the transcript client in quick mode: the
// record carries the video's title and description instead of speech text.
type metadataFetcher struct{}

func (metadataFetcher) FetchTranscript(_ context.Context, video models.VideoCandidate) (string, error) {
	return fmt.Sprintf("Title: %s\nDescription: %s\n", video.Title, video.Description), nil
}
