// Package catalog classifies raw GitHub releases into the data model behind
// the generated firmware catalog: per-device archive groups keyed by build
// source, special asset slots, search blobs, and catalog-wide stats.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"fwcatalog/internal/github"
)

// Catalog is the fully classified result of one generation run.
type Catalog struct {
	Repo     string
	Releases []*Release
	Stats    Stats
}

// Build fetches, filters, orders, and classifies repo's releases. Drafts are
// dropped and the remainder sorted newest first by raw publish timestamp;
// ISO-8601 strings compare chronologically, so no parsing is needed here.
func Build(ctx context.Context, src github.Source, repo string) (*Catalog, error) {
	raw, err := src.ListReleases(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("listing releases for %s: %w", repo, err)
	}

	visible := make([]github.Release, 0, len(raw))
	for _, release := range raw {
		if release.Draft {
			continue
		}
		visible = append(visible, release)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return rawTimestamp(visible[i]) > rawTimestamp(visible[j])
	})

	classifier := NewClassifier(src)
	releases := make([]*Release, 0, len(visible))
	for _, release := range visible {
		releases = append(releases, classifier.Classify(ctx, release))
	}

	return &Catalog{
		Repo:     repo,
		Releases: releases,
		Stats:    BuildStats(releases),
	}, nil
}

func rawTimestamp(release github.Release) string {
	if release.PublishedAt != "" {
		return release.PublishedAt
	}
	return release.CreatedAt
}
