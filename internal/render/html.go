// Package render produces the catalog's output documents: the static
// searchable HTML page and the machine-readable releases.json.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"fwcatalog/internal/catalog"
	"fwcatalog/internal/github"
)

//go:embed templates
var templateFS embed.FS

// Renderer executes the embedded catalog page template.
type Renderer struct {
	tmpl  *template.Template
	title string
	now   func() time.Time
}

// RendererOption configures optional Renderer behavior.
type RendererOption func(*Renderer)

// WithClock overrides the clock behind the "Generated" timestamp in the page
// hero. Tests use it to pin the output.
func WithClock(now func() time.Time) RendererOption {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer parses the embedded page template. The title shows up as both
// the document title and the hero heading.
func NewRenderer(title string, opts ...RendererOption) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing catalog template: %w", err)
	}

	r := &Renderer{
		tmpl:  tmpl,
		title: title,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// HTML renders the complete catalog page.
func (r *Renderer) HTML(cat *catalog.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "catalog.html", r.buildPage(cat)); err != nil {
		return nil, fmt.Errorf("rendering catalog page: %w", err)
	}
	return buf.Bytes(), nil
}

type pageView struct {
	Title       string
	Repo        string
	GeneratedAt string
	Stats       catalog.Stats
	Releases    []releaseView
}

type releaseView struct {
	Name         string
	IsPrerelease bool
	TagName      string
	PublishedAt  string
	DevicesTotal int
	SourcesTotal int
	AssetsTotal  int
	HTMLURL      string
	SearchBlob   string
	QuickLinks   []chipView
	Devices      []deviceView
}

type chipView struct {
	Label string
	URL   string
	Title string
	Size  string
}

type deviceView struct {
	Slug       string
	SearchBlob string
	Rows       []rowView
}

type rowView struct {
	SourceDisplay string
	AssetName     string
	DownloadURL   string
	VariantLabel  string
	SizeText      string
}

func (r *Renderer) buildPage(cat *catalog.Catalog) pageView {
	releases := make([]releaseView, 0, len(cat.Releases))
	for _, release := range cat.Releases {
		releases = append(releases, buildReleaseView(release))
	}
	return pageView{
		Title:       r.title,
		Repo:        cat.Repo,
		GeneratedAt: r.now().UTC().Format("2006-01-02 15:04 UTC"),
		Stats:       cat.Stats,
		Releases:    releases,
	}
}

func buildReleaseView(release *catalog.Release) releaseView {
	devices := make([]deviceView, 0, len(release.DeviceGroups))
	for _, device := range release.DeviceGroups {
		devices = append(devices, buildDeviceView(device))
	}
	return releaseView{
		Name:         release.Name,
		IsPrerelease: release.IsPrerelease,
		TagName:      release.TagName,
		PublishedAt:  release.PublishedAt,
		DevicesTotal: release.DevicesTotal,
		SourcesTotal: release.SourcesTotal,
		AssetsTotal:  release.AssetsTotal,
		HTMLURL:      release.HTMLURL,
		SearchBlob:   release.SearchBlob,
		QuickLinks:   assetChips(release),
		Devices:      devices,
	}
}

// buildDeviceView flattens a device's source groups into table rows and
// assembles the card's own search blob. The blob carries raw source names,
// sentinel included, while the visible rows use the display form.
func buildDeviceView(device catalog.DeviceGroup) deviceView {
	tokens := []string{strings.ToLower(device.Slug)}
	var rows []rowView
	for _, source := range device.Sources {
		display := sourceDisplay(source.Name)
		tokens = append(tokens, strings.ToLower(source.Name))
		for _, row := range source.Rows {
			tokens = append(tokens, strings.ToLower(row.AssetName))
			rows = append(rows, rowView{
				SourceDisplay: display,
				AssetName:     row.AssetName,
				DownloadURL:   row.DownloadURL,
				VariantLabel:  row.VariantLabel,
				SizeText:      row.SizeText,
			})
		}
	}
	return deviceView{
		Slug:       device.Slug,
		SearchBlob: strings.Join(tokens, " "),
		Rows:       rows,
	}
}

// assetChips builds the quick-link chips for a release's special assets,
// skipping absent ones.
func assetChips(release *catalog.Release) []chipView {
	specials := []struct {
		label string
		asset *github.Asset
	}{
		{"All firmware BIN", release.FirmwareAll},
		{"Bundle", release.FirmwareBundle},
		{"SHA256SUMS", release.Checksums},
		{"FILES", release.FilesManifest},
		{"BUILD_INFO", release.BuildInfo},
		{"RELEASE_MATRIX", release.ReleaseMatrix},
	}

	chips := make([]chipView, 0, len(specials))
	for _, special := range specials {
		if special.asset == nil {
			continue
		}
		chips = append(chips, chipView{
			Label: special.label,
			URL:   special.asset.BrowserDownloadURL,
			Title: special.asset.Name,
			Size:  catalog.FormatSize(special.asset.Size),
		})
	}
	return chips
}

// sourceDisplay is the human form of a build-source name. The sentinel
// renders as plain "unknown".
func sourceDisplay(name string) string {
	if name == catalog.SourceSentinel {
		return "unknown"
	}
	return name
}
