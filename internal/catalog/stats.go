package catalog

import "github.com/Masterminds/semver/v3"

// Stats aggregates catalog-wide totals for the page header. Devices and
// sources are counted distinct across the whole catalog; variants count
// every archive row.
type Stats struct {
	ReleasesTotal int    `json:"releases_total"`
	DevicesTotal  int    `json:"devices_total"`
	SourcesTotal  int    `json:"sources_total"`
	VariantsTotal int    `json:"variants_total"`
	LatestStable  string `json:"latest_stable,omitempty"`
}

// BuildStats computes the totals across classified releases.
func BuildStats(releases []*Release) Stats {
	deviceNames := map[string]struct{}{}
	sourceNames := map[string]struct{}{}
	variantsTotal := 0

	for _, release := range releases {
		for _, device := range release.DeviceGroups {
			deviceNames[device.Slug] = struct{}{}
			for _, source := range device.Sources {
				sourceNames[source.Name] = struct{}{}
				variantsTotal += len(source.Rows)
			}
		}
	}

	return Stats{
		ReleasesTotal: len(releases),
		DevicesTotal:  len(deviceNames),
		SourcesTotal:  len(sourceNames),
		VariantsTotal: variantsTotal,
		LatestStable:  latestStable(releases),
	}
}

// latestStable returns the highest semantic version label among
// non-prerelease releases. Labels that do not parse as semver are skipped.
func latestStable(releases []*Release) string {
	var best *semver.Version
	bestLabel := ""

	for _, release := range releases {
		if release.IsPrerelease || release.VersionLabel == "" {
			continue
		}
		version, err := semver.NewVersion(release.VersionLabel)
		if err != nil {
			continue
		}
		if best == nil || version.GreaterThan(best) {
			best = version
			bestLabel = release.VersionLabel
		}
	}
	return bestLabel
}
