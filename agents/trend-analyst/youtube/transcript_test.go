package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"trendwatch/shared/config"
)

var testScrapeConfig = config.ScrapeConfig{TranscriptTimeout: 5}

func TestPickTrack(t *testing.T) {
	tests := []struct {
		name   string
		tracks []captionTrack
		want   string
	}{
		{
			name: "prefers manual english over asr",
			tracks: []captionTrack{
				{BaseURL: "asr", LanguageCode: "en", Kind: "asr"},
				{BaseURL: "manual", LanguageCode: "en"},
			},
			want: "manual",
		},
		{
			name: "falls back to asr english",
			tracks: []captionTrack{
				{BaseURL: "french", LanguageCode: "fr"},
				{BaseURL: "asr", LanguageCode: "en-US", Kind: "asr"},
			},
			want: "asr",
		},
		{
			name: "falls back to first track",
			tracks: []captionTrack{
				{BaseURL: "german", LanguageCode: "de"},
				{BaseURL: "french", LanguageCode: "fr"},
			},
			want: "german",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickTrack(tt.tracks); got.BaseURL != tt.want {
				t.Errorf("pickTrack() = %q, want %q", got.BaseURL, tt.want)
			}
		})
	}
}

func TestFetchTrackParsesTimedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.5" dur="2.1">hello world</text>
  <text start="2.6" dur="3.4">it&amp;#39;s a test</text>
</transcript>`))
	}))
	defer server.Close()

	client := NewTranscriptClient(&testScrapeConfig)
	cues, err := client.fetchTrack(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetchTrack failed: %v", err)
	}

	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	if cues[0].Start != 0.5 || cues[0].Dur != 2.1 || cues[0].Body != "hello world" {
		t.Errorf("unexpected first cue: %+v", cues[0])
	}
	if cues[1].Start != 2.6 {
		t.Errorf("unexpected second cue start: %v", cues[1].Start)
	}
}

func TestCaptionTracksParsing(t *testing.T) {
	body := `...junk..."captionTracks":[{"baseUrl":"https://example.com/tt?v=x","languageCode":"en","kind":"asr"},{"baseUrl":"https://example.com/tt?v=y","languageCode":"en"}],"audioTracks":[]...more junk`

	tracks, err := parseCaptionTracks([]byte(body))
	if err != nil {
		t.Fatalf("parseCaptionTracks failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	if tracks[0].Kind != "asr" || tracks[1].LanguageCode != "en" {
		t.Errorf("unexpected tracks: %+v", tracks)
	}
}

func TestCaptionTracksParsingMissing(t *testing.T) {
	tracks, err := parseCaptionTracks([]byte("<html>no captions here</html>"))
	if err != nil {
		t.Fatalf("parseCaptionTracks failed: %v", err)
	}
	if tracks != nil {
		t.Errorf("expected nil tracks, got %+v", tracks)
	}
}
