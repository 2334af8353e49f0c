package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fwcatalog/internal/catalog"
	"fwcatalog/internal/config"
	"fwcatalog/internal/export"
	"fwcatalog/internal/github"
	"fwcatalog/internal/render"
	"fwcatalog/internal/server"
)

// Integration tests that exercise the full generation pipeline end-to-end
// against a stubbed GitHub API.

// githubStub emulates the two GitHub surfaces the generator touches: the
// paginated releases listing and asset downloads.
type githubStub struct {
	srv *httptest.Server

	mu           sync.Mutex
	pages        [][]github.Release
	matrix       []byte
	matrixStatus int
	lastAuth     string
	lastAccept   string
	lastVersion  string
	lastAgent    string
}

func newGitHubStub(t *testing.T) *githubStub {
	t.Helper()

	stub := &githubStub{matrixStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/firmware/releases", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.lastAuth = r.Header.Get("Authorization")
		stub.lastAccept = r.Header.Get("Accept")
		stub.lastVersion = r.Header.Get("X-GitHub-Api-Version")
		stub.lastAgent = r.Header.Get("User-Agent")
		pages := stub.pages
		stub.mu.Unlock()

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}

		w.Header().Set("Content-Type", "application/json")
		if page > len(pages) {
			fmt.Fprint(w, "[]")
			return
		}
		json.NewEncoder(w).Encode(pages[page-1])
	})
	mux.HandleFunc("/assets/matrix", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		status, payload := stub.matrixStatus, stub.matrix
		stub.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, "matrix unavailable", status)
			return
		}
		w.Write(payload)
	})

	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)
	return stub
}

func (s *githubStub) matrixURL() string {
	return s.srv.URL + "/assets/matrix"
}

func (s *githubStub) client(opts ...github.ClientOption) *github.Client {
	opts = append([]github.ClientOption{github.WithBaseURL(s.srv.URL)}, opts...)
	return github.NewClient("test-token", opts...)
}

func TestIntegration_FullGenerationFlow(t *testing.T) {
	stub := newGitHubStub(t)
	stub.matrix = []byte(`[
		{"archive_name": "firmware-tbeam-2.7.13.zip", "build_list_file": "build_list_svk.yaml"},
		{"archive_name": "firmware-heltec-v3-2.7.13.zip", "build_list_slug": "build_list_eu"}
	]`)
	stub.pages = [][]github.Release{{
		{
			Name:        "Firmware 2.7.13",
			TagName:     "v2.7.13",
			HTMLURL:     "https://github.com/acme/firmware/releases/tag/v2.7.13",
			PublishedAt: "2024-06-02T10:00:00Z",
			Assets: []github.Asset{
				{Name: "firmware-all-2.7.13.zip", ContentType: "application/zip", Size: 104857600, BrowserDownloadURL: "https://dl.example.com/firmware-all-2.7.13.zip"},
				{Name: "firmware-tbeam-2.7.13.zip", ContentType: "application/zip", Size: 2097152, BrowserDownloadURL: "https://dl.example.com/firmware-tbeam-2.7.13.zip"},
				{Name: "firmware-heltec-v3-2.7.13.zip", ContentType: "application/zip", Size: 1048576, BrowserDownloadURL: "https://dl.example.com/firmware-heltec-v3-2.7.13.zip"},
				{Name: "RELEASE_MATRIX.json", ContentType: "application/json", Size: 512, BrowserDownloadURL: stub.matrixURL()},
				{Name: "SHA256SUMS.txt", ContentType: "text/plain", Size: 1024, BrowserDownloadURL: "https://dl.example.com/SHA256SUMS.txt"},
				{Name: "release-notes.md", ContentType: "text/markdown", Size: 2048, BrowserDownloadURL: "https://dl.example.com/release-notes.md"},
			},
		},
		{
			Name:        "Firmware 2.7.12 Beta",
			TagName:     "v2.7.12",
			HTMLURL:     "https://github.com/acme/firmware/releases/tag/v2.7.12",
			Prerelease:  true,
			PublishedAt: "2024-05-01T09:00:00Z",
			Assets: []github.Asset{
				{Name: "firmware-rak4631-2.7.12.zip", ContentType: "application/zip", Size: 3145728, BrowserDownloadURL: "https://dl.example.com/firmware-rak4631-2.7.12.zip"},
			},
		},
	}}

	ctx := context.Background()

	// Step 1: Fetch and classify through the real client.
	cat, err := catalog.Build(ctx, stub.client(), "acme/firmware")
	require.NoError(t, err)

	assert.Equal(t, "acme/firmware", cat.Repo)
	require.Len(t, cat.Releases, 2)

	latest := cat.Releases[0]
	assert.Equal(t, "v2.7.13", latest.TagName)
	assert.Equal(t, "2.7.13", latest.VersionLabel)
	assert.Equal(t, "2024-06-02 10:00 UTC", latest.PublishedAt)
	assert.Equal(t, 6, latest.AssetsTotal)
	assert.Equal(t, 2, latest.DevicesTotal)
	assert.Equal(t, 2, latest.SourcesTotal)
	require.NotNil(t, latest.FirmwareAll)
	require.NotNil(t, latest.Checksums)
	assert.Nil(t, latest.BuildInfo)
	require.Len(t, latest.OtherAssets, 1)
	assert.Equal(t, "release-notes.md", latest.OtherAssets[0].Name)

	// Devices come out sorted while sources carry the matrix mapping.
	require.Len(t, latest.DeviceGroups, 2)
	assert.Equal(t, "heltec-v3", latest.DeviceGroups[0].Slug)
	assert.Equal(t, "tbeam", latest.DeviceGroups[1].Slug)
	require.Len(t, latest.DeviceGroups[0].Sources, 1)
	assert.Equal(t, "build_list_eu.yaml", latest.DeviceGroups[0].Sources[0].Name)
	require.Len(t, latest.DeviceGroups[1].Sources, 1)
	assert.Equal(t, "build_list_svk.yaml", latest.DeviceGroups[1].Sources[0].Name)

	older := cat.Releases[1]
	assert.Equal(t, "v2.7.12", older.TagName)
	assert.True(t, older.IsPrerelease)
	require.Len(t, older.DeviceGroups, 1)
	assert.Equal(t, "rak4631", older.DeviceGroups[0].Slug)
	assert.Equal(t, catalog.SourceSentinel, older.DeviceGroups[0].Sources[0].Name)

	// Step 2: The client sent the documented headers.
	stub.mu.Lock()
	assert.Equal(t, "Bearer test-token", stub.lastAuth)
	assert.Equal(t, "application/vnd.github+json", stub.lastAccept)
	assert.Equal(t, "2022-11-28", stub.lastVersion)
	assert.Equal(t, "fwcatalog-release-pages-generator", stub.lastAgent)
	stub.mu.Unlock()

	// Step 3: Render and write both artifacts the way the generate command does.
	outputDir := t.TempDir()

	renderer, err := render.NewRenderer("Firmware Release Catalog", render.WithClock(func() time.Time {
		return time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)

	page, err := renderer.HTML(cat)
	require.NoError(t, err)
	indexPath := filepath.Join(outputDir, "index.html")
	require.NoError(t, os.WriteFile(indexPath, page, 0o644))

	data, err := render.JSON(cat.Releases)
	require.NoError(t, err)
	dataPath := filepath.Join(outputDir, "releases.json")
	require.NoError(t, os.WriteFile(dataPath, data, 0o644))

	html := string(page)
	assert.Contains(t, html, "<code>acme/firmware</code>")
	assert.Contains(t, html, "Generated 2024-06-03 08:00 UTC")
	assert.Contains(t, html, "Releases: 2")
	assert.Contains(t, html, "Devices: 3")
	assert.Contains(t, html, "heltec-v3")
	assert.Contains(t, html, "build_list_svk.yaml")
	assert.Contains(t, html, `<span class="badge">pre-release</span>`)

	// Step 4: The JSON document round-trips with the classified shape.
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "v2.7.13", decoded[0]["tag_name"])
	groups, ok := decoded[0]["device_groups"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, groups, 2)
	assert.Contains(t, groups, "tbeam")
	assert.Nil(t, decoded[0]["build_info"])
	assert.NotEqual(t, byte('\n'), data[len(data)-1])

	// Step 5: The SQLite snapshot captures the same catalog.
	dbPath := filepath.Join(outputDir, "catalog.db")
	require.NoError(t, export.WriteSQLite(ctx, dbPath, cat))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var releaseCount, archiveCount int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM releases").Scan(&releaseCount))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM device_archives").Scan(&archiveCount))
	assert.Equal(t, 2, releaseCount)
	assert.Equal(t, 3, archiveCount)
}

func TestIntegration_PaginationAndDraftFiltering(t *testing.T) {
	stub := newGitHubStub(t)
	stub.pages = [][]github.Release{
		{
			{Name: "Draft build", TagName: "v3.0.0-draft", Draft: true, PublishedAt: "2024-07-01T00:00:00Z"},
			{Name: "Firmware 2.0.0", TagName: "v2.0.0", PublishedAt: "2024-06-01T00:00:00Z"},
		},
		{
			{Name: "Firmware 1.0.0", TagName: "v1.0.0", PublishedAt: "2024-05-01T00:00:00Z"},
		},
	}

	// Page size 2 forces the client through both pages; the short second
	// page stops the walk.
	cat, err := catalog.Build(context.Background(), stub.client(github.WithPageSize(2)), "acme/firmware")
	require.NoError(t, err)

	require.Len(t, cat.Releases, 2)
	assert.Equal(t, "v2.0.0", cat.Releases[0].TagName)
	assert.Equal(t, "v1.0.0", cat.Releases[1].TagName)
}

func TestIntegration_MatrixFetchFailure(t *testing.T) {
	stub := newGitHubStub(t)
	stub.matrixStatus = http.StatusInternalServerError
	stub.pages = [][]github.Release{{
		{
			Name:        "Firmware 2.7.13",
			TagName:     "v2.7.13",
			PublishedAt: "2024-06-02T10:00:00Z",
			Assets: []github.Asset{
				{Name: "firmware-all-2.7.13.zip", Size: 1024, BrowserDownloadURL: "https://dl.example.com/firmware-all-2.7.13.zip"},
				{Name: "firmware-tbeam-2.7.13.zip", Size: 1024, BrowserDownloadURL: "https://dl.example.com/firmware-tbeam-2.7.13.zip"},
				{Name: "firmware-heltec-v3-2.7.13.zip", Size: 1024, BrowserDownloadURL: "https://dl.example.com/firmware-heltec-v3-2.7.13.zip"},
				{Name: "RELEASE_MATRIX.json", Size: 512, BrowserDownloadURL: stub.matrixURL()},
			},
		},
	}}

	// A broken matrix must not fail generation; every archive falls back
	// to the sentinel source.
	cat, err := catalog.Build(context.Background(), stub.client(), "acme/firmware")
	require.NoError(t, err)

	require.Len(t, cat.Releases, 1)
	release := cat.Releases[0]
	assert.Equal(t, 2, release.DevicesTotal)
	assert.Equal(t, 1, release.SourcesTotal)
	for _, device := range release.DeviceGroups {
		require.Len(t, device.Sources, 1)
		assert.Equal(t, catalog.SourceSentinel, device.Sources[0].Name)
	}
}

func TestIntegration_PreviewServer(t *testing.T) {
	stub := newGitHubStub(t)
	stub.pages = [][]github.Release{{
		{
			Name:        "Firmware 1.2.3",
			TagName:     "v1.2.3",
			PublishedAt: "2024-06-02T10:00:00Z",
			Assets: []github.Asset{
				{Name: "firmware-tbeam-1.2.3.zip", Size: 2048, BrowserDownloadURL: "https://dl.example.com/firmware-tbeam-1.2.3.zip"},
			},
		},
	}}

	ctx := context.Background()
	cat, err := catalog.Build(ctx, stub.client(), "acme/firmware")
	require.NoError(t, err)

	siteDir := t.TempDir()

	renderer, err := render.NewRenderer("Firmware Release Catalog")
	require.NoError(t, err)
	page, err := renderer.HTML(cat)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "index.html"), page, 0o644))

	data, err := render.JSON(cat.Releases)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "releases.json"), data, 0o644))

	srv := server.New(config.ServeConfig{
		Addr:         "127.0.0.1:0",
		Dir:          siteDir,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  10 * time.Second,
	}, config.MetricsConfig{Enabled: true, Path: "/metrics"})

	preview := httptest.NewServer(srv.Handler())
	defer preview.Close()

	// The generated page is served as the site root.
	resp, err := http.Get(preview.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The data document is served verbatim.
	resp, err = http.Get(preview.URL + "/releases.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var served []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&served))
	require.Len(t, served, 1)
	assert.Equal(t, "v1.2.3", served[0]["tag_name"])

	// Health and metrics ride on the same listener.
	resp, err = http.Get(preview.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])

	resp, err = http.Get(preview.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_ConcurrentPreviewRequests(t *testing.T) {
	siteDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "index.html"), []byte("<h1>catalog</h1>"), 0o644))

	srv := server.New(config.ServeConfig{
		Addr:         "127.0.0.1:0",
		Dir:          siteDir,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  10 * time.Second,
	}, config.MetricsConfig{})

	preview := httptest.NewServer(srv.Handler())
	defer preview.Close()

	const numRequests = 10
	results := make(chan error, numRequests)

	for i := 0; i < numRequests; i++ {
		go func(id int) {
			resp, err := http.Get(preview.URL + "/index.html")
			if err != nil {
				results <- fmt.Errorf("request %d failed: %v", id, err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				results <- fmt.Errorf("request %d got status %d", id, resp.StatusCode)
				return
			}
			results <- nil
		}(i)
	}

	for i := 0; i < numRequests; i++ {
		assert.NoError(t, <-results, "Concurrent request failed")
	}
}

func TestIntegration_ConfigLoading(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "integration_config.yaml")

	configContent := `
site:
  title: "Acme Firmware"
  repo: "acme/firmware"

github:
  api_base_url: "https://github.example.com/api/v3"
  timeout: 45s
  page_size: 50

output:
  dir: "./public"
  sqlite_path: "./catalog.db"

logging:
  level: "debug"
  format: "text"

serve:
  addr: ":9090"
  dir: "./public"
  read_timeout: 45s
  write_timeout: 45s
  idle_timeout: 90s

metrics:
  enabled: true
  path: "/metrics"

observability:
  service_name: "fwcatalog-integration"
  tracing:
    enabled: false
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := config.Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, "Acme Firmware", cfg.Site.Title)
	assert.Equal(t, "acme/firmware", cfg.Site.Repo)

	assert.Equal(t, "https://github.example.com/api/v3", cfg.GitHub.APIBaseURL)
	assert.Equal(t, 45*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, 50, cfg.GitHub.PageSize)

	assert.Equal(t, "./public", cfg.Output.Dir)
	assert.Equal(t, "./catalog.db", cfg.Output.SQLitePath)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	assert.Equal(t, ":9090", cfg.Serve.Addr)
	assert.Equal(t, "./public", cfg.Serve.Dir)
	assert.Equal(t, 45*time.Second, cfg.Serve.ReadTimeout)
	assert.Equal(t, 45*time.Second, cfg.Serve.WriteTimeout)
	assert.Equal(t, 90*time.Second, cfg.Serve.IdleTimeout)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	assert.Equal(t, "fwcatalog-integration", cfg.Observability.ServiceName)
	assert.False(t, cfg.Observability.Tracing.Enabled)

	err = cfg.Validate()
	assert.NoError(t, err)
}
