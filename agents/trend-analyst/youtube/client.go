package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"trendwatch/internal/models"
	"trendwatch/shared/config"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Client wraps the YouTube Data API for channel resolution and bounded
// recent-video listing. All calls go through a shared rate limiter so a
// fan-out scrape cannot burn through the daily quota in a burst.
type Client struct {
	service *youtube.Service
	limiter *rate.Limiter
}

func NewClient(ctx context.Context, cfg *config.YouTubeConfig) (*Client, error) {
	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// No API key configured; fall back to the OAuth device flow.
		httpClient, err := newOAuthClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up OAuth client: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		service: service,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}, nil
}

var channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

type referenceKind int

const (
	refHandle referenceKind = iota
	refChannelID
	refCustom
)

// normalizeReference strips URL scaffolding from a channel reference and
// classifies what is left: an @handle, a literal UC... channel ID, or a
// legacy custom/user name.
func normalizeReference(reference string) (referenceKind, string, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return 0, "", fmt.Errorf("empty channel reference")
	}

	if strings.Contains(ref, "youtube.com/") {
		if !strings.Contains(ref, "://") {
			ref = "https://" + ref
		}
		parsed, err := url.Parse(ref)
		if err != nil {
			return 0, "", fmt.Errorf("unparseable channel URL %q: %w", reference, err)
		}
		path := strings.Trim(parsed.Path, "/")
		segments := strings.Split(path, "/")
		if len(segments) == 0 || segments[0] == "" {
			return 0, "", fmt.Errorf("channel URL %q has no path", reference)
		}
		switch {
		case strings.HasPrefix(segments[0], "@"):
			return refHandle, segments[0], nil
		case segments[0] == "channel" && len(segments) > 1:
			return refChannelID, segments[1], nil
		case (segments[0] == "c" || segments[0] == "user") && len(segments) > 1:
			return refCustom, segments[1], nil
		default:
			// youtube.com/SomeName legacy form
			return refCustom, segments[0], nil
		}
	}

	if strings.HasPrefix(ref, "@") {
		return refHandle, ref, nil
	}
	if channelIDPattern.MatchString(ref) {
		return refChannelID, ref, nil
	}
	return refCustom, ref, nil
}

// ResolveChannel maps a handle, custom URL or literal ID to the canonical
// channel ID. Read-only; returns models.ErrChannelNotFound when nothing
// matches and models.ErrQuotaExceeded when the API reports quota exhaustion.
func (c *Client) ResolveChannel(ctx context.Context, reference string) (string, error) {
	kind, value, err := normalizeReference(reference)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrChannelNotFound, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	switch kind {
	case refChannelID:
		resp, err := c.service.Channels.List([]string{"id"}).Id(value).Context(ctx).Do()
		if err != nil {
			return "", classifyAPIError(err)
		}
		if len(resp.Items) == 0 {
			return "", fmt.Errorf("no channel with ID %s: %w", value, models.ErrChannelNotFound)
		}
		return resp.Items[0].Id, nil

	case refHandle:
		resp, err := c.service.Channels.List([]string{"id"}).ForHandle(value).Context(ctx).Do()
		if err != nil {
			return "", classifyAPIError(err)
		}
		if len(resp.Items) == 0 {
			return "", fmt.Errorf("no channel with handle %s: %w", value, models.ErrChannelNotFound)
		}
		return resp.Items[0].Id, nil

	default:
		// Legacy custom/user names have no direct lookup endpoint; a channel
		// search on the exact name is the documented workaround.
		resp, err := c.service.Search.List([]string{"snippet"}).
			Q(value).Type("channel").MaxResults(1).Context(ctx).Do()
		if err != nil {
			return "", classifyAPIError(err)
		}
		if len(resp.Items) == 0 || resp.Items[0].Snippet.ChannelId == "" {
			return "", fmt.Errorf("no channel matching %q: %w", value, models.ErrChannelNotFound)
		}
		return resp.Items[0].Snippet.ChannelId, nil
	}
}

// ListRecentVideos returns the channel's most recent uploads whose publish
// timestamps fall inside the inclusive date range, newest first, capped at
// maxCount. An empty result is a valid outcome, not an error.
func (c *Client) ListRecentVideos(ctx context.Context, channelID string, dateRange models.DateRange, maxCount int) ([]models.VideoCandidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	channelsResp, err := c.service.Channels.List([]string{"contentDetails"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if len(channelsResp.Items) == 0 {
		return nil, fmt.Errorf("no channel with ID %s: %w", channelID, models.ErrChannelNotFound)
	}
	uploads := channelsResp.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		log.Printf("Channel %s has no uploads playlist", channelID)
		return nil, nil
	}

	var candidates []models.VideoCandidate
	pageToken := ""
	// Uploads playlists come back reverse-chronological, so we can stop
	// paging once an item predates the window.
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := c.service.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(uploads).MaxResults(50).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, classifyAPIError(err)
		}

		pastWindow := false
		for _, item := range resp.Items {
			publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			if err != nil {
				log.Printf("Skipping playlist item with bad timestamp %q: %v", item.Snippet.PublishedAt, err)
				continue
			}
			if publishedAt.Before(dateRange.Since) {
				pastWindow = true
				continue
			}
			if !dateRange.Contains(publishedAt) {
				continue
			}
			candidates = append(candidates, models.VideoCandidate{
				ID:           item.Snippet.ResourceId.VideoId,
				ChannelID:    channelID,
				ChannelTitle: item.Snippet.ChannelTitle,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				PublishedAt:  publishedAt,
			})
		}

		pageToken = resp.NextPageToken
		if pastWindow || pageToken == "" {
			break
		}
	}

	return sortAndCap(candidates, maxCount), nil
}

// sortAndCap orders candidates newest first and truncates to maxCount.
func sortAndCap(candidates []models.VideoCandidate, maxCount int) []models.VideoCandidate {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].PublishedAt.After(candidates[j].PublishedAt)
	})
	if maxCount >= 0 && len(candidates) > maxCount {
		candidates = candidates[:maxCount]
	}
	return candidates
}

// classifyAPIError maps googleapi failures onto the error taxonomy: quota
// signals become ErrQuotaExceeded, 404s become ErrChannelNotFound, and
// everything else is tagged transient.
func classifyAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 403:
			for _, e := range gerr.Errors {
				switch e.Reason {
				case "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded":
					return fmt.Errorf("%w: %v", models.ErrQuotaExceeded, err)
				}
			}
			return err
		case 429:
			return fmt.Errorf("%w: %v", models.ErrQuotaExceeded, err)
		case 404:
			return fmt.Errorf("%w: %v", models.ErrChannelNotFound, err)
		}
		if gerr.Code >= 500 {
			return models.Transient(err)
		}
		return err
	}
	// Transport-level failure: the lookup service was unreachable.
	return models.Transient(err)
}
