package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trendwatch/internal/models"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int32
	text  string
	err   error
	delay time.Duration
}

func (f *fakeFetcher) FetchTranscript(ctx context.Context, video models.VideoCandidate) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeFetcher) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

func testVideo(id string) models.VideoCandidate {
	return models.VideoCandidate{
		ID:           id,
		ChannelID:    "UCxxxxxxxxxxxxxxxxxxxxxx",
		ChannelTitle: "Test Channel",
		Title:        "Test Video " + id,
		PublishedAt:  time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestGetOrFetchCachesSuccess(t *testing.T) {
	fetcher := &fakeFetcher{text: "(0.00-1.00): hello\n"}
	store, err := NewTranscriptStore(t.TempDir(), fetcher)
	require.NoError(t, err)

	first, err := store.GetOrFetch(context.Background(), testVideo("abc123"))
	require.NoError(t, err)
	require.Equal(t, models.FetchOK, first.Status)
	require.Equal(t, "(0.00-1.00): hello\n", first.Transcript)

	second, err := store.GetOrFetch(context.Background(), testVideo("abc123"))
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, fetcher.callCount(), "second lookup must be a cache hit")
}

func TestGetOrFetchCachesUnavailable(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("no captions: %w", models.ErrTranscriptUnavailable)}
	store, err := NewTranscriptStore(t.TempDir(), fetcher)
	require.NoError(t, err)

	rec, err := store.GetOrFetch(context.Background(), testVideo("nocaps"))
	require.NoError(t, err, "terminal fetch failures are records, not errors")
	require.Equal(t, models.FetchUnavailable, rec.Status)
	require.False(t, rec.Usable())
	require.NotEmpty(t, rec.Error)

	_, err = store.GetOrFetch(context.Background(), testVideo("nocaps"))
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.callCount(), "unavailable outcome must be cached, never retried")
}

func TestGetOrFetchCachesError(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("watch page returned status 500")}
	store, err := NewTranscriptStore(t.TempDir(), fetcher)
	require.NoError(t, err)

	rec, err := store.GetOrFetch(context.Background(), testVideo("broken"))
	require.NoError(t, err)
	require.Equal(t, models.FetchError, rec.Status)

	_, err = store.GetOrFetch(context.Background(), testVideo("broken"))
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.callCount())
}

func TestGetOrFetchDoesNotCacheCancellation(t *testing.T) {
	fetcher := &fakeFetcher{delay: time.Second, text: "late"}
	store, err := NewTranscriptStore(t.TempDir(), fetcher)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.GetOrFetch(ctx, testVideo("cancelled"))
	require.Error(t, err)

	// A later run with a live context gets a real fetch, not a cached failure.
	fetcher.delay = 0
	rec, err := store.GetOrFetch(context.Background(), testVideo("cancelled"))
	require.NoError(t, err)
	require.Equal(t, models.FetchOK, rec.Status)
	require.Equal(t, 2, fetcher.callCount())
}

func TestGetOrFetchSingleFlight(t *testing.T) {
	fetcher := &fakeFetcher{text: "shared result", delay: 50 * time.Millisecond}
	store, err := NewTranscriptStore(t.TempDir(), fetcher)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*models.TranscriptRecord, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.GetOrFetch(context.Background(), testVideo("popular"))
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, fetcher.callCount(), "concurrent callers must share one fetch")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "shared result", results[i].Transcript)
	}
}

func TestStoreSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{text: "persisted"}

	store, err := NewTranscriptStore(dir, fetcher)
	require.NoError(t, err)
	_, err = store.GetOrFetch(context.Background(), testVideo("durable"))
	require.NoError(t, err)

	// A fresh store over the same directory must serve the record from disk.
	reopened, err := NewTranscriptStore(dir, fetcher)
	require.NoError(t, err)
	rec, err := reopened.GetOrFetch(context.Background(), testVideo("durable"))
	require.NoError(t, err)
	require.Equal(t, "persisted", rec.Transcript)
	require.Equal(t, 1, fetcher.callCount(), "restart must not trigger a re-fetch")
}
