package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"trendwatch/internal/models"
	"trendwatch/shared/config"

	"golang.org/x/time/rate"
)

// TranscriptClient fetches video transcripts from the caption tracks exposed
// on the public watch page. This endpoint is separate from the Data API and
// costs no quota, but it only works for videos whose captions are public.
type TranscriptClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

func NewTranscriptClient(cfg *config.ScrapeConfig) *TranscriptClient {
	return &TranscriptClient{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		timeout:    time.Duration(cfg.TranscriptTimeout * float64(time.Second)),
	}
}

// FetchTranscript returns the transcript text for the video, one cue per
// line as "(start-end): text". Returns models.ErrTranscriptUnavailable when
// the video has no public captions.
func (t *TranscriptClient) FetchTranscript(ctx context.Context, video models.VideoCandidate) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}

	tracks, err := t.captionTracks(ctx, video.ID)
	if err != nil {
		return "", err
	}
	if len(tracks) == 0 {
		return "", fmt.Errorf("video %s has no caption tracks: %w", video.ID, models.ErrTranscriptUnavailable)
	}

	cues, err := t.fetchTrack(ctx, pickTrack(tracks).BaseURL)
	if err != nil {
		return "", err
	}
	if len(cues) == 0 {
		return "", fmt.Errorf("caption track for %s is empty: %w", video.ID, models.ErrTranscriptUnavailable)
	}

	var sb strings.Builder
	for _, cue := range cues {
		text := strings.TrimSpace(html.UnescapeString(cue.Body))
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "(%.2f-%.2f): %s\n", cue.Start, cue.Start+cue.Dur, text)
	}
	return sb.String(), nil
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// captionTracks scrapes the captionTracks array out of the watch page's
// embedded player response.
func (t *TranscriptClient) captionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.youtube.com/watch?v="+videoID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", watchPageUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, models.Transient(fmt.Errorf("watch page request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("video %s: %w", videoID, models.ErrVideoNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("watch page rate limited: %w", models.ErrQuotaExceeded)
	case resp.StatusCode != http.StatusOK:
		return nil, models.Transient(fmt.Errorf("watch page returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, models.Transient(fmt.Errorf("failed to read watch page: %w", err))
	}

	tracks, err := parseCaptionTracks(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse caption tracks for %s: %w", videoID, err)
	}
	return tracks, nil
}

// parseCaptionTracks finds the captionTracks array embedded in the watch
// page's player response. A page without the marker simply has no captions.
func parseCaptionTracks(body []byte) ([]captionTrack, error) {
	const marker = `"captionTracks":`
	idx := strings.Index(string(body), marker)
	if idx == -1 {
		return nil, nil
	}

	// Decode just the array that follows the marker; the decoder stops at
	// the closing bracket on its own.
	var tracks []captionTrack
	dec := json.NewDecoder(strings.NewReader(string(body[idx+len(marker):])))
	if err := dec.Decode(&tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// pickTrack prefers manually-authored English captions, then auto-generated
// English, then whatever is first.
func pickTrack(tracks []captionTrack) captionTrack {
	var asrEnglish *captionTrack
	for i, track := range tracks {
		if !strings.HasPrefix(track.LanguageCode, "en") {
			continue
		}
		if track.Kind != "asr" {
			return track
		}
		if asrEnglish == nil {
			asrEnglish = &tracks[i]
		}
	}
	if asrEnglish != nil {
		return *asrEnglish
	}
	return tracks[0]
}

type captionCue struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Body  string  `xml:",chardata"`
}

type timedTextDocument struct {
	XMLName xml.Name     `xml:"transcript"`
	Texts   []captionCue `xml:"text"`
}

func (t *TranscriptClient) fetchTrack(ctx context.Context, baseURL string) ([]captionCue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", watchPageUserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, models.Transient(fmt.Errorf("caption track request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.Transient(fmt.Errorf("caption track returned status %d", resp.StatusCode))
	}

	var doc timedTextDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse caption track XML: %w", err)
	}
	return doc.Texts, nil
}

const watchPageUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
