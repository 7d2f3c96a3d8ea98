package wowprogress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout            = 30 * time.Second
	DefaultSolverTimeout      = 90 * time.Second
	defaultSolverMaxTimeoutMS = 60000
)

// PageFetcher retrieves the raw markup of one page. Implementations
// differ in how they get past the listing source's bot protection.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages with a plain HTTP GET. The listing source
// sits behind a browser challenge, so this mostly works for cached or
// unprotected pages; production runs use the FlareSolverr fetcher.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// HTTPFetcherOption configures HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// NewHTTPFetcher creates a plain-HTTP page fetcher.
func NewHTTPFetcher(opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0 Safari/537.36",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPage performs a GET and returns the body as a string.
func (f *HTTPFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", url, err)
	}
	return string(body), nil
}

// Verify interface compliance at compile time.
var _ PageFetcher = (*HTTPFetcher)(nil)

// FlareSolverrFetcher fetches pages through a FlareSolverr instance,
// which solves the browser challenge and returns the rendered markup.
type FlareSolverrFetcher struct {
	endpoint     string
	client       *http.Client
	maxTimeoutMS int
}

// NewFlareSolverrFetcher creates a fetcher that proxies through the
// FlareSolverr API at endpoint (e.g. "http://localhost:8191/v1").
func NewFlareSolverrFetcher(endpoint string) *FlareSolverrFetcher {
	return &FlareSolverrFetcher{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: DefaultSolverTimeout},
		maxTimeoutMS: defaultSolverMaxTimeoutMS,
	}
}

// solverRequest is the FlareSolverr request.get command.
type solverRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int    `json:"maxTimeout"`
}

// solverResponse is the FlareSolverr response envelope.
type solverResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Solution *struct {
		URL      string `json:"url"`
		Status   int    `json:"status"`
		Response string `json:"response"`
	} `json:"solution"`
}

// FetchPage asks FlareSolverr to load the page and returns the solved
// markup.
func (f *FlareSolverrFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	payload, err := json.Marshal(solverRequest{
		Cmd:        "request.get",
		URL:        url,
		MaxTimeout: f.maxTimeoutMS,
	})
	if err != nil {
		return "", fmt.Errorf("marshal solver request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build solver request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call flaresolverr: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read flaresolverr response: %w", err)
	}

	var solved solverResponse
	if err := json.Unmarshal(body, &solved); err != nil {
		return "", fmt.Errorf("decode flaresolverr response: %w", err)
	}

	if solved.Status != "ok" || solved.Solution == nil {
		return "", fmt.Errorf("flaresolverr failed: %s", solved.Message)
	}
	if solved.Solution.Status >= http.StatusBadRequest {
		return "", fmt.Errorf("flaresolverr target returned status %d", solved.Solution.Status)
	}

	return solved.Solution.Response, nil
}

// Verify interface compliance at compile time.
var _ PageFetcher = (*FlareSolverrFetcher)(nil)
