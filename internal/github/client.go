// Package github provides a small authenticated client for the GitHub REST
// API, covering exactly what the catalog generator needs: listing a
// repository's releases page by page and downloading individual release
// assets.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUserAgent = "fwcatalog-release-pages-generator"
	defaultPageSize  = 100

	acceptHeader = "application/vnd.github+json"
	apiVersion   = "2022-11-28"
)

// Source lists releases and fetches release assets. Client implements it;
// the observability package wraps it with spans and metrics.
type Source interface {
	ListReleases(ctx context.Context, repo string) ([]Release, error)
	FetchAsset(ctx context.Context, url string) ([]byte, error)
}

// Client talks to the GitHub REST API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	pageSize   int
	httpClient *http.Client
}

var _ Source = (*Client)(nil)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root, e.g. a GitHub
// Enterprise instance or a test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
			baseURL = baseURL[:len(baseURL)-1]
		}
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client, including its timeout.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithPageSize sets the per_page value used when listing releases. The API
// caps it at 100.
func WithPageSize(pageSize int) ClientOption {
	return func(c *Client) {
		c.pageSize = pageSize
	}
}

// NewClient creates a GitHub API client authenticated with token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		token:     token,
		userAgent: defaultUserAgent,
		pageSize:  defaultPageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListReleases returns all releases of repo ("owner/name"), walking the
// paginated endpoint until an empty or short page. Drafts are included; the
// catalog layer filters them out.
func (c *Client) ListReleases(ctx context.Context, repo string) ([]Release, error) {
	var releases []Release
	page := 1
	for {
		url := fmt.Sprintf("%s/repos/%s/releases?per_page=%d&page=%d", c.baseURL, repo, c.pageSize, page)

		body, err := c.get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetching releases page %d: %w", page, err)
		}

		var chunk []Release
		if err := json.Unmarshal(body, &chunk); err != nil {
			return nil, fmt.Errorf("decoding releases page %d: %w", page, err)
		}

		if len(chunk) == 0 {
			break
		}
		releases = append(releases, chunk...)
		if len(chunk) < c.pageSize {
			break
		}
		page++
	}
	return releases, nil
}

// FetchAsset downloads url with the same authenticated headers used for API
// calls. GitHub redirects asset downloads to its CDN; the underlying client
// follows those redirects.
func (c *Client) FetchAsset(ctx context.Context, url string) ([]byte, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching asset: %w", err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}
