package trendanalyst

import (
	"context"
	"errors"
	"log"
	"sync"

	"trendwatch/internal/models"
	"trendwatch/shared/config"
)

// ChannelResolver maps a user-supplied channel reference to a canonical
// channel ID.
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, reference string) (string, error)
}

// VideoLister returns a channel's recent uploads inside a date range, newest
// first, capped at maxCount.
type VideoLister interface {
	ListRecentVideos(ctx context.Context, channelID string, dateRange models.DateRange, maxCount int) ([]models.VideoCandidate, error)
}

// TranscriptSource is the cache-backed transcript acquisition boundary.
type TranscriptSource interface {
	GetOrFetch(ctx context.Context, video models.VideoCandidate) (*models.TranscriptRecord, error)
}

// ScrapeCoordinator drives resolution, video selection and transcript
// acquisition across all requested channels. Channels are processed with a
// bounded fan-out and fail independently: one bad channel never aborts the
// run, it just shows up in the session's per-channel outcomes.
type ScrapeCoordinator struct {
	resolver    ChannelResolver
	lister      VideoLister
	transcripts TranscriptSource
	maxVideos   int
	concurrency int
}

func NewScrapeCoordinator(resolver ChannelResolver, lister VideoLister, transcripts TranscriptSource, cfg *config.ScrapeConfig) *ScrapeCoordinator {
	return &ScrapeCoordinator{
		resolver:    resolver,
		lister:      lister,
		transcripts: transcripts,
		maxVideos:   cfg.MaxVideosPerChannel,
		concurrency: cfg.Concurrency,
	}
}

// Scrape populates the session with transcript records and per-channel
// outcomes. It is best-effort: the only error it returns is cancellation.
func (c *ScrapeCoordinator) Scrape(ctx context.Context, session *RunSession) error {
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for _, req := range session.Requests() {
		wg.Add(1)
		go func(req *models.ChannelRequest) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			session.RecordOutcome(c.scrapeChannel(ctx, session, req))
		}(req)
	}

	wg.Wait()
	return ctx.Err()
}

func (c *ScrapeCoordinator) scrapeChannel(ctx context.Context, session *RunSession, req *models.ChannelRequest) models.ChannelOutcome {
	outcome := models.ChannelOutcome{Reference: req.Reference}

	channelID, err := c.resolver.ResolveChannel(ctx, req.Reference)
	if err != nil {
		outcome.Status = failureStatus(err)
		outcome.Error = err.Error()
		log.Printf("Failed to resolve channel %s: %v", req.Reference, err)
		return outcome
	}
	outcome.ChannelID = channelID

	videos, err := c.lister.ListRecentVideos(ctx, channelID, session.DateRange(), c.maxVideos)
	if err != nil {
		outcome.Status = failureStatus(err)
		outcome.Error = err.Error()
		log.Printf("Failed to list videos for %s: %v", req.Reference, err)
		return outcome
	}
	if len(videos) == 0 {
		// A channel with no recent activity is a valid, non-fatal outcome.
		outcome.Status = models.ChannelNoVideos
		return outcome
	}
	outcome.Videos = len(videos)

	// Fetches are issued newest-first; aggregation in the session is keyed
	// by video ID so completion order does not matter.
	for _, video := range videos {
		if ctx.Err() != nil {
			outcome.Status = models.ChannelTransient
			outcome.Error = ctx.Err().Error()
			return outcome
		}
		rec, err := c.transcripts.GetOrFetch(ctx, video)
		if err != nil {
			log.Printf("Warning: transcript store failed for video %s (%s): %v", video.ID, video.Title, err)
			continue
		}
		session.AddRecord(rec)
		if rec.Usable() {
			outcome.Transcripts++
		} else {
			log.Printf("No usable transcript for video %s (%s): status=%s", video.ID, video.Title, rec.Status)
		}
	}

	outcome.Status = models.ChannelSuccess
	return outcome
}

func failureStatus(err error) models.ChannelStatus {
	if errors.Is(err, models.ErrChannelNotFound) {
		return models.ChannelNotFound
	}
	return models.ChannelTransient
}
