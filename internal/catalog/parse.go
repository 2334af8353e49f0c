package catalog

import (
	"regexp"
	"strings"

	"fwcatalog/internal/github"
)

const (
	firmwareAllPrefix    = "firmware-all-"
	firmwareBundlePrefix = "firmware-bundle-"
	firmwarePrefix       = "firmware-"
	zipSuffix            = ".zip"
	bundleSuffix         = ".tar.gz"
)

// ParseVersionLabel extracts the firmware version carried by a release's
// assets. The aggregate firmware-all-<version>.zip archive wins; the source
// bundle firmware-bundle-<version>.tar.gz is the fallback. Within each form
// the first asset in listing order decides.
func ParseVersionLabel(assets []github.Asset) string {
	for _, asset := range assets {
		name := asset.Name
		if strings.HasPrefix(name, firmwareAllPrefix) && strings.HasSuffix(name, zipSuffix) {
			return name[len(firmwareAllPrefix) : len(name)-len(zipSuffix)]
		}
	}
	for _, asset := range assets {
		name := asset.Name
		if strings.HasPrefix(name, firmwareBundlePrefix) && strings.HasSuffix(name, bundleSuffix) {
			return name[len(firmwareBundlePrefix) : len(name)-len(bundleSuffix)]
		}
	}
	return ""
}

// DeriveDeviceSlug extracts the device identifier from a firmware archive
// name. With a known version the name is matched against
// firmware-<device>-<version>[-<n>].zip, which keeps hyphenated device names
// intact. Without one, the firmware- prefix and .zip suffix are stripped.
func DeriveDeviceSlug(assetName, versionLabel string) string {
	if versionLabel != "" {
		re := regexp.MustCompile(`^firmware-(.+)-` + regexp.QuoteMeta(versionLabel) + `(?:-(\d+))?\.zip$`)
		if m := re.FindStringSubmatch(assetName); m != nil {
			return m[1]
		}
	}

	fallback := ""
	if len(assetName) > len(firmwarePrefix)+len(zipSuffix) {
		fallback = assetName[len(firmwarePrefix) : len(assetName)-len(zipSuffix)]
	}
	if fallback == "" {
		return "unknown-device"
	}
	return fallback
}

// DeriveVariantLabel classifies a firmware archive as the device's main
// build, a numbered variant, or an unversioned archive.
func DeriveVariantLabel(assetName, deviceSlug, versionLabel string) string {
	if versionLabel == "" {
		return "archive"
	}
	re := regexp.MustCompile(`^firmware-` + regexp.QuoteMeta(deviceSlug) + `-` + regexp.QuoteMeta(versionLabel) + `(?:-(\d+))?\.zip$`)
	m := re.FindStringSubmatch(assetName)
	if m == nil {
		return "archive"
	}
	if m[1] == "" {
		return "main"
	}
	return "variant " + m[1]
}
