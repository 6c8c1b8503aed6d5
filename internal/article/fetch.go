package article

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// fetchTimeout bounds the page download.
	fetchTimeout = 15 * time.Second

	// defaultUserAgent is a desktop-browser agent; many sites refuse
	// requests that identify as bots.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// maxBodyBytes caps the downloaded page size.
	maxBodyBytes = 4 << 20
)

// FetcherOption is a functional option for configuring the Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithClient replaces the underlying HTTP client.
func WithClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = hc
	}
}

// Fetcher downloads article pages and extracts their readable text.
// Safe for concurrent use.
type Fetcher struct {
	userAgent  string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher with the default browser user agent.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch downloads the page at url and returns its readable text, truncated
// per [ExtractText]. Non-200 responses are errors — typically a paywall,
// login wall, or bot block.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("article: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("article: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("article: fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("article: read body: %w", err)
	}

	text, err := ExtractText(string(body))
	if err != nil {
		return "", fmt.Errorf("article: extract %s: %w", url, err)
	}
	return text, nil
}
