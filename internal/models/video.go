package models

import (
	"fmt"
	"time"
)

// VideoCandidate is one video selected from a channel's recent uploads,
// filtered to the requested date range.
type VideoCandidate struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PublishedAt  time.Time `json:"published_at"`
}

// URL returns the canonical watch URL for the video.
func (v VideoCandidate) URL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", v.ID)
}
