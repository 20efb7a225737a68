package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"trendwatch/shared/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// newOAuthClient builds an authenticated HTTP client using the device
// authorization flow. The token is cached on disk and refreshed tokens are
// written back so they survive restarts.
func newOAuthClient(ctx context.Context, cfg *config.YouTubeConfig) (*http.Client, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.readonly"},
		Endpoint:     google.Endpoint,
	}

	token, err := loadOrRequestToken(ctx, oauthConfig, cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	return oauth2.NewClient(ctx, &tokenSaver{
		config:    oauthConfig,
		token:     token,
		tokenFile: cfg.TokenFile,
	}), nil
}

// tokenSaver wraps an oauth2.TokenSource and persists refreshed tokens to
// disk as a side effect of Token().
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	mu        sync.Mutex
}

func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}
	if newToken.AccessToken != ts.token.AccessToken {
		log.Println("OAuth token refreshed, saving to file")
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			log.Printf("Warning: failed to save refreshed token: %v", err)
		}
	}
	return newToken, nil
}

func loadOrRequestToken(ctx context.Context, oauthConfig *oauth2.Config, tokenFile string) (*oauth2.Token, error) {
	if tok, err := tokenFromFile(tokenFile); err == nil {
		// An expired token with a refresh token is still usable; the
		// tokenSaver refreshes it on first use.
		if tok.RefreshToken != "" || tok.Valid() {
			return tok, nil
		}
	}

	tok, err := requestTokenWithDeviceFlow(ctx, oauthConfig)
	if err != nil {
		return nil, fmt.Errorf("device authorization failed: %w (ensure the OAuth client is a 'TVs and Limited Input devices' client and the YouTube Data API v3 is enabled)", err)
	}
	if err := saveToken(tokenFile, tok); err != nil {
		log.Printf("Warning: failed to save token: %v", err)
	}
	return tok, nil
}

func requestTokenWithDeviceFlow(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	resp, err := oauthConfig.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("unable to start device authorization: %w", err)
	}

	fmt.Printf("\nYouTube authorization required:\n")
	fmt.Printf("  1. Visit %s\n", resp.VerificationURI)
	fmt.Printf("  2. Enter code: %s\n", resp.UserCode)
	fmt.Printf("Waiting for authorization... (Ctrl+C to cancel)\n\n")

	tok, err := oauthConfig.DeviceAccessToken(ctx, resp, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("device authorization did not complete: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	return tok, json.NewDecoder(f).Decode(tok)
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
