package github

// Release is the raw wire representation of a GitHub release, reduced to the
// fields the catalog consumes. Timestamps stay strings so values the API
// returns in an unexpected shape can flow through to the page untouched.
type Release struct {
	Name        string  `json:"name"`
	TagName     string  `json:"tag_name"`
	HTMLURL     string  `json:"html_url"`
	Draft       bool    `json:"draft"`
	Prerelease  bool    `json:"prerelease"`
	CreatedAt   string  `json:"created_at"`
	PublishedAt string  `json:"published_at"`
	Assets      []Asset `json:"assets"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	ContentType        string `json:"content_type"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}
