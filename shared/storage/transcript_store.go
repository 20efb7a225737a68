package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trendwatch/internal/models"
)

// TranscriptFetcher acquires the transcript text for a video. The store
// treats it as opaque; classification of failures happens via the error
// taxonomy in internal/models.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, video models.VideoCandidate) (string, error)
}

// TranscriptStore is the durable, append-only transcript cache: one JSON file
// per video, keyed by video ID. A record is written once (whatever its
// status) and never re-fetched or mutated; transcripts of published videos
// are immutable, and a terminal failure is cached so we do not retry it
// forever.
//
// The store also guarantees at most one in-flight fetch per video ID:
// concurrent callers for the same ID wait for and share the single result.
// This is the only synchronization shared across runs.
type TranscriptStore struct {
	dir     string
	fetcher TranscriptFetcher

	mu       sync.Mutex
	records  map[string]*models.TranscriptRecord
	inflight map[string]*inflightFetch
}

type inflightFetch struct {
	done chan struct{}
	rec  *models.TranscriptRecord
	err  error
}

// NewTranscriptStore creates the store rooted at <dataDir>/transcripts.
func NewTranscriptStore(dataDir string, fetcher TranscriptFetcher) (*TranscriptStore, error) {
	dir := filepath.Join(dataDir, "transcripts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	return &TranscriptStore{
		dir:      dir,
		fetcher:  fetcher,
		records:  make(map[string]*models.TranscriptRecord),
		inflight: make(map[string]*inflightFetch),
	}, nil
}

// GetOrFetch returns the cached record for the video, fetching and persisting
// it first if no record exists. Fetch failures are not errors to the caller:
// they are persisted as terminal unavailable/error records and returned as
// such. The returned error is reserved for storage faults and cancellation.
func (s *TranscriptStore) GetOrFetch(ctx context.Context, video models.VideoCandidate) (*models.TranscriptRecord, error) {
	s.mu.Lock()
	if rec, ok := s.records[video.ID]; ok {
		s.mu.Unlock()
		return rec, nil
	}
	if fl, ok := s.inflight[video.ID]; ok {
		// Another caller is fetching this video; wait for its result.
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-fl.done:
			return fl.rec, fl.err
		}
	}
	if rec, err := s.loadRecord(video.ID); err == nil {
		s.records[video.ID] = rec
		s.mu.Unlock()
		return rec, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: unreadable transcript record for %s, re-fetching: %v", video.ID, err)
	}

	fl := &inflightFetch{done: make(chan struct{})}
	s.inflight[video.ID] = fl
	s.mu.Unlock()

	rec, err := s.fetchAndPersist(ctx, video)

	s.mu.Lock()
	delete(s.inflight, video.ID)
	if err == nil {
		s.records[video.ID] = rec
	}
	s.mu.Unlock()

	fl.rec, fl.err = rec, err
	close(fl.done)

	return rec, err
}

func (s *TranscriptStore) fetchAndPersist(ctx context.Context, video models.VideoCandidate) (*models.TranscriptRecord, error) {
	rec := &models.TranscriptRecord{
		VideoID:      video.ID,
		ChannelID:    video.ChannelID,
		ChannelTitle: video.ChannelTitle,
		Title:        video.Title,
		PublishedAt:  video.PublishedAt,
		FetchedAt:    time.Now().UTC(),
	}

	text, err := s.fetcher.FetchTranscript(ctx, video)
	switch {
	case err == nil:
		rec.Status = models.FetchOK
		rec.Transcript = text
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		// Run cancellation is not a terminal outcome for the video; do not cache it.
		return nil, err
	case errors.Is(err, models.ErrTranscriptUnavailable) || errors.Is(err, models.ErrVideoNotFound):
		rec.Status = models.FetchUnavailable
		rec.Error = err.Error()
	default:
		rec.Status = models.FetchError
		rec.Error = err.Error()
	}

	if err := s.saveRecord(rec); err != nil {
		return nil, fmt.Errorf("failed to persist transcript record for %s: %w", video.ID, err)
	}
	return rec, nil
}

// Count returns the number of records known to this process.
func (s *TranscriptStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *TranscriptStore) recordPath(videoID string) string {
	return filepath.Join(s.dir, videoID+".json")
}

func (s *TranscriptStore) loadRecord(videoID string) (*models.TranscriptRecord, error) {
	data, err := os.ReadFile(s.recordPath(videoID))
	if err != nil {
		return nil, err
	}
	var rec models.TranscriptRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode transcript record: %w", err)
	}
	return &rec, nil
}

func (s *TranscriptStore) saveRecord(rec *models.TranscriptRecord) error {
	file, err := os.Create(s.recordPath(rec.VideoID))
	if err != nil {
		return fmt.Errorf("failed to create record file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rec)
}
