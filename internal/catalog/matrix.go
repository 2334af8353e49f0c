package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"fwcatalog/internal/github"
)

// SourceSentinel labels archives whose build source cannot be resolved. It
// sorts after every real source within a device and renders as "unknown".
const SourceSentinel = "unknown-build-list"

// ArchiveMeta is the build-source metadata one RELEASE_MATRIX.json entry
// records for an archive.
type ArchiveMeta struct {
	BuildListFile string
	BuildListSlug string
	SourceSlug    string
}

// MatrixIndex maps archive file names to their build metadata.
type MatrixIndex map[string]ArchiveMeta

// AssetFetcher downloads a release asset by URL.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, url string) ([]byte, error)
}

// LoadMatrix downloads and indexes a release's RELEASE_MATRIX.json. Matrix
// problems never fail a release: a missing asset, fetch error, malformed
// document, or non-array payload yields an empty index, and the release's
// archives fall back to the sentinel source label.
func LoadMatrix(ctx context.Context, fetcher AssetFetcher, matrixAsset *github.Asset) MatrixIndex {
	index := MatrixIndex{}
	if matrixAsset == nil || matrixAsset.BrowserDownloadURL == "" {
		return index
	}

	payload, err := fetcher.FetchAsset(ctx, matrixAsset.BrowserDownloadURL)
	if err != nil {
		slog.Debug("Release matrix fetch failed", "asset", matrixAsset.Name, "error", err)
		return index
	}
	if !gjson.ValidBytes(payload) {
		slog.Debug("Release matrix is not valid JSON", "asset", matrixAsset.Name)
		return index
	}

	parsed := gjson.ParseBytes(payload)
	if !parsed.IsArray() {
		slog.Debug("Release matrix is not a JSON array", "asset", matrixAsset.Name)
		return index
	}

	for _, item := range parsed.Array() {
		if !item.IsObject() {
			continue
		}
		archiveName := strings.TrimSpace(item.Get("archive_name").String())
		if archiveName == "" {
			continue
		}
		index[archiveName] = ArchiveMeta{
			BuildListFile: strings.TrimSpace(item.Get("build_list_file").String()),
			BuildListSlug: strings.TrimSpace(item.Get("build_list_slug").String()),
			SourceSlug:    strings.TrimSpace(item.Get("source_slug").String()),
		}
	}
	return index
}

// PickSourceName resolves an archive's display source from its matrix
// metadata. Candidate keys are tried in priority order and placeholder
// values are skipped; when nothing usable remains the sentinel is returned.
func PickSourceName(meta ArchiveMeta) string {
	for _, raw := range []string{meta.BuildListFile, meta.BuildListSlug, meta.SourceSlug} {
		value := strings.TrimSpace(raw)
		if value == "" || value == "unknown" || value == SourceSentinel {
			continue
		}
		return NormalizeSourceName(value)
	}
	return SourceSentinel
}

// NormalizeSourceName canonicalizes a raw build-source value. Empty and
// "unknown" map to the sentinel, existing .yaml names and the sentinel pass
// through, and bare build_list* names get the .yaml extension appended.
func NormalizeSourceName(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" || value == "unknown" {
		return SourceSentinel
	}
	if value == SourceSentinel {
		return value
	}
	if strings.HasSuffix(value, ".yaml") {
		return value
	}
	if strings.HasPrefix(value, "build_list") {
		return value + ".yaml"
	}
	return value
}
