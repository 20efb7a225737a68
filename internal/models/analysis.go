package models

import "time"

// VideoThemes is the analysis stage's output for one video: a small set of
// recurring themes plus a one-paragraph summary, with channel/video
// attribution preserved so the synthesis stage can cite sources.
type VideoThemes struct {
	VideoID      string   `json:"video_id"`
	ChannelID    string   `json:"channel_id"`
	ChannelTitle string   `json:"channel_title"`
	Title        string   `json:"title"`
	Themes       []string `json:"themes"`
	Summary      string   `json:"summary"`
}

// AnalysisResult is the full Stage 1 output, handed to Stage 2 by value and
// never persisted beyond the run.
type AnalysisResult struct {
	Videos []VideoThemes `json:"videos"`
}

// ByChannel groups the per-video themes by channel title, preserving the
// order in which channels first appear.
func (a AnalysisResult) ByChannel() ([]string, map[string][]VideoThemes) {
	var order []string
	grouped := make(map[string][]VideoThemes)
	for _, v := range a.Videos {
		key := v.ChannelTitle
		if key == "" {
			key = v.ChannelID
		}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], v)
	}
	return order, grouped
}

// Report is the synthesis stage's final Markdown output.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Markdown    string    `json:"markdown"`
}
