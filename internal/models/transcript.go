package models

import "time"

// FetchStatus is the terminal state of a transcript acquisition attempt.
// Every status is cached: a second lookup for the same video is a cache hit,
// never a re-fetch.
type FetchStatus string

const (
	FetchOK          FetchStatus = "ok"
	FetchUnavailable FetchStatus = "unavailable"
	FetchError       FetchStatus = "error"
)

// TranscriptRecord is the durable, append-only cache entry for one video.
// Keyed by video ID; created on the first fetch and never mutated afterwards.
type TranscriptRecord struct {
	VideoID      string      `json:"video_id"`
	ChannelID    string      `json:"channel_id"`
	ChannelTitle string      `json:"channel_title"`
	Title        string      `json:"title"`
	PublishedAt  time.Time   `json:"published_at"`
	Transcript   string      `json:"transcript,omitempty"`
	Status       FetchStatus `json:"status"`
	Error        string      `json:"error,omitempty"`
	FetchedAt    time.Time   `json:"fetched_at"`
}

// Usable reports whether the record carries transcript text the analysis
// stage can consume.
func (r *TranscriptRecord) Usable() bool {
	return r != nil && r.Status == FetchOK && r.Transcript != ""
}
