package catalog

import (
	"context"
	"sort"
	"strings"

	"fwcatalog/internal/github"
)

// Release is one published GitHub release classified into catalog form.
// Field order matches the JSON document the site publishes.
type Release struct {
	Name            string         `json:"name"`
	TagName         string         `json:"tag_name"`
	HTMLURL         string         `json:"html_url"`
	IsPrerelease    bool           `json:"is_prerelease"`
	PublishedAt     string         `json:"published_at"`
	PublishedAtSort string         `json:"published_at_sort"`
	AssetsTotal     int            `json:"assets_total"`
	DevicesTotal    int            `json:"devices_total"`
	SourcesTotal    int            `json:"sources_total"`
	VersionLabel    string         `json:"version_label"`
	FirmwareAll     *github.Asset  `json:"firmware_all"`
	FirmwareBundle  *github.Asset  `json:"firmware_bundle"`
	Checksums       *github.Asset  `json:"checksums"`
	FilesManifest   *github.Asset  `json:"files_manifest"`
	BuildInfo       *github.Asset  `json:"build_info"`
	ReleaseMatrix   *github.Asset  `json:"release_matrix_asset"`
	DeviceGroups    DeviceGroups   `json:"device_groups"`
	OtherAssets     []github.Asset `json:"other_assets"`
	SearchBlob      string         `json:"search_blob"`
}

// Classifier turns raw GitHub releases into catalog releases. The fetcher
// resolves each release's build matrix; classification itself never fails.
type Classifier struct {
	fetcher AssetFetcher
}

// NewClassifier returns a Classifier that loads release matrices through
// fetcher.
func NewClassifier(fetcher AssetFetcher) *Classifier {
	return &Classifier{fetcher: fetcher}
}

// Classify buckets a release's assets by role, groups its per-device
// archives by device and build source, and assembles the search blob the
// page's filter box matches against.
//
// Ordering is deliberate. Devices and sources are grouped in first-appearance
// order, source groups are then sorted with the sentinel last and rows by
// asset name, the search blob is built while devices still stand in
// first-appearance order, and only then are devices sorted for output.
func (c *Classifier) Classify(ctx context.Context, raw github.Release) *Release {
	assets := raw.Assets
	versionLabel := ParseVersionLabel(assets)

	var firmwareAll, firmwareBundle, checksums, filesManifest, buildInfo, releaseMatrix *github.Asset
	var perDevice []github.Asset
	otherAssets := []github.Asset{}

	for _, asset := range assets {
		name := asset.Name
		switch {
		case strings.HasPrefix(name, firmwareAllPrefix) && strings.HasSuffix(name, zipSuffix):
			firmwareAll = &asset
		case strings.HasPrefix(name, firmwareBundlePrefix) && strings.HasSuffix(name, bundleSuffix):
			firmwareBundle = &asset
		case name == "SHA256SUMS.txt":
			checksums = &asset
		case name == "FILES.txt":
			filesManifest = &asset
		case name == "BUILD_INFO.json":
			buildInfo = &asset
		case name == "RELEASE_MATRIX.json":
			releaseMatrix = &asset
		case strings.HasPrefix(name, firmwarePrefix) && strings.HasSuffix(name, zipSuffix):
			perDevice = append(perDevice, asset)
		default:
			otherAssets = append(otherAssets, asset)
		}
	}

	matrixByArchive := LoadMatrix(ctx, c.fetcher, releaseMatrix)

	groups := DeviceGroups{}
	for _, asset := range perDevice {
		deviceSlug := DeriveDeviceSlug(asset.Name, versionLabel)
		variantLabel := DeriveVariantLabel(asset.Name, deviceSlug, versionLabel)
		sourceName := PickSourceName(matrixByArchive[asset.Name])
		groups.Add(deviceSlug, sourceName, ArchiveRow{
			VariantLabel: variantLabel,
			AssetName:    asset.Name,
			DownloadURL:  asset.BrowserDownloadURL,
			SizeText:     FormatSize(asset.Size),
		})
	}

	for i := range groups {
		sources := groups[i].Sources
		sort.SliceStable(sources, func(a, b int) bool {
			return sourceLess(sources[a].Name, sources[b].Name)
		})
		for j := range sources {
			rows := sources[j].Rows
			sort.SliceStable(rows, func(a, b int) bool {
				return rows[a].AssetName < rows[b].AssetName
			})
		}
	}

	publishedRaw := raw.PublishedAt
	if publishedRaw == "" {
		publishedRaw = raw.CreatedAt
	}
	publishedText, publishedSort := FormatTimestamp(publishedRaw)
	if publishedText == "" {
		publishedText = publishedRaw
	}
	if publishedSort == "" {
		publishedSort = publishedRaw
	}

	releaseName := raw.Name
	if releaseName == "" {
		releaseName = raw.TagName
	}
	if releaseName == "" {
		releaseName = "Untitled release"
	}

	uniqueSources := map[string]struct{}{}
	searchTokens := []string{
		strings.ToLower(releaseName),
		strings.ToLower(raw.TagName),
		strings.ToLower(versionLabel),
	}
	for _, device := range groups {
		searchTokens = append(searchTokens, strings.ToLower(device.Slug))
		for _, source := range device.Sources {
			uniqueSources[source.Name] = struct{}{}
			searchTokens = append(searchTokens, strings.ToLower(source.Name))
			for _, row := range source.Rows {
				searchTokens = append(searchTokens,
					strings.ToLower(row.AssetName),
					strings.ToLower(row.VariantLabel),
				)
			}
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Slug < groups[b].Slug
	})
	sort.SliceStable(otherAssets, func(a, b int) bool {
		return otherAssets[a].Name < otherAssets[b].Name
	})

	blobParts := make([]string, 0, len(searchTokens))
	for _, token := range searchTokens {
		if token != "" {
			blobParts = append(blobParts, token)
		}
	}

	return &Release{
		Name:            releaseName,
		TagName:         raw.TagName,
		HTMLURL:         raw.HTMLURL,
		IsPrerelease:    raw.Prerelease,
		PublishedAt:     publishedText,
		PublishedAtSort: publishedSort,
		AssetsTotal:     len(assets),
		DevicesTotal:    len(groups),
		SourcesTotal:    len(uniqueSources),
		VersionLabel:    versionLabel,
		FirmwareAll:     firmwareAll,
		FirmwareBundle:  firmwareBundle,
		Checksums:       checksums,
		FilesManifest:   filesManifest,
		BuildInfo:       buildInfo,
		ReleaseMatrix:   releaseMatrix,
		DeviceGroups:    groups,
		OtherAssets:     otherAssets,
		SearchBlob:      strings.Join(blobParts, " "),
	}
}

// sourceLess orders source names alphabetically with the sentinel always
// last.
func sourceLess(a, b string) bool {
	rankA, rankB := sourceRank(a), sourceRank(b)
	if rankA != rankB {
		return rankA < rankB
	}
	return a < b
}

func sourceRank(name string) int {
	if name == SourceSentinel {
		return 1
	}
	return 0
}
