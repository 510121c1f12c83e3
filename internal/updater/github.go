package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nghyane/proxypanel/internal/cache"
	"github.com/nghyane/proxypanel/internal/json"
	"github.com/nghyane/proxypanel/internal/resilience"
)

const (
	githubAPIBase = "https://api.github.com"

	latestReleaseCacheKey = "latest_release"
	latestReleaseCacheTTL = 300 * time.Second
)

// Release is the subset of a GitHub release the panel cares about.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// releaseClient fetches the latest release for one repository, with
// retries, a circuit breaker, and a cache in front of the GitHub API.
type releaseClient struct {
	repo    string
	baseURL string
	cache   *cache.Cache
	fetch   *resilience.Executor[Release]

	httpClient *http.Client
}

func newReleaseClient(repo string, c *cache.Cache) *releaseClient {
	breakerCfg := resilience.DefaultBreakerConfig("github-releases")
	return &releaseClient{
		repo:       repo,
		baseURL:    githubAPIBase,
		cache:      c,
		fetch:      resilience.NewExecutor[Release](resilience.DefaultRetryConfig, &breakerCfg),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Latest returns the newest published release, cached for a few minutes.
func (c *releaseClient) Latest(ctx context.Context) (Release, error) {
	if cached, ok := cache.GetTyped[Release](c.cache, latestReleaseCacheKey, latestReleaseCacheTTL); ok {
		return cached, nil
	}

	release, err := c.fetch.Execute(ctx, func() (Release, error) {
		return c.fetchLatest(ctx)
	})
	if err != nil {
		return Release{}, err
	}

	c.cache.Set(latestReleaseCacheKey, release)
	return release, nil
}

func (c *releaseClient) fetchLatest(ctx context.Context) (Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Release{}, fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("release lookup for %s returned %d", c.repo, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Release{}, fmt.Errorf("read release response: %w", err)
	}

	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return Release{}, fmt.Errorf("parse release response: %w", err)
	}
	if release.TagName == "" {
		return Release{}, fmt.Errorf("release response for %s had no tag", c.repo)
	}
	return release, nil
}
