// Package export writes optional machine-readable snapshots of a built
// catalog alongside the static site.
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"fwcatalog/internal/catalog"
	"fwcatalog/internal/github"
)

const snapshotSchema = `
CREATE TABLE releases (
	position          INTEGER PRIMARY KEY,
	name              TEXT NOT NULL,
	tag_name          TEXT NOT NULL,
	html_url          TEXT NOT NULL,
	is_prerelease     INTEGER NOT NULL,
	published_at      TEXT NOT NULL,
	published_at_sort TEXT NOT NULL,
	assets_total      INTEGER NOT NULL,
	devices_total     INTEGER NOT NULL,
	sources_total     INTEGER NOT NULL,
	version_label     TEXT NOT NULL,
	search_blob       TEXT NOT NULL
);

CREATE TABLE release_assets (
	release_position     INTEGER NOT NULL REFERENCES releases(position),
	role                 TEXT NOT NULL,
	name                 TEXT NOT NULL,
	content_type         TEXT NOT NULL,
	size                 INTEGER NOT NULL,
	browser_download_url TEXT NOT NULL
);

CREATE TABLE device_archives (
	release_position INTEGER NOT NULL REFERENCES releases(position),
	device_slug      TEXT NOT NULL,
	source_name      TEXT NOT NULL,
	variant_label    TEXT NOT NULL,
	asset_name       TEXT NOT NULL,
	download_url     TEXT NOT NULL,
	size_text        TEXT NOT NULL
);

CREATE TABLE catalog_stats (
	repo           TEXT NOT NULL,
	generated_at   TEXT NOT NULL,
	releases_total INTEGER NOT NULL,
	devices_total  INTEGER NOT NULL,
	sources_total  INTEGER NOT NULL,
	variants_total INTEGER NOT NULL,
	latest_stable  TEXT NOT NULL
);

CREATE INDEX idx_device_archives_release ON device_archives(release_position, device_slug);
CREATE INDEX idx_release_assets_release ON release_assets(release_position, role);
`

// WriteSQLite writes a snapshot of the catalog to a SQLite database at path,
// replacing any existing file. Releases keep their catalog order through the
// position column; all writes happen in a single transaction.
func WriteSQLite(ctx context.Context, path string, cat *catalog.Catalog) error {
	if path == "" {
		return errors.New("sqlite path is required")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing snapshot: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertReleases(ctx, tx, cat.Releases); err != nil {
		return err
	}
	if err := insertStats(ctx, tx, cat); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func insertReleases(ctx context.Context, tx *sql.Tx, releases []*catalog.Release) error {
	releaseStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO releases (
			position, name, tag_name, html_url, is_prerelease,
			published_at, published_at_sort, assets_total, devices_total,
			sources_total, version_label, search_blob
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare release insert: %w", err)
	}
	defer releaseStmt.Close()

	assetStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO release_assets (
			release_position, role, name, content_type, size, browser_download_url
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare asset insert: %w", err)
	}
	defer assetStmt.Close()

	archiveStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO device_archives (
			release_position, device_slug, source_name, variant_label,
			asset_name, download_url, size_text
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare archive insert: %w", err)
	}
	defer archiveStmt.Close()

	for position, release := range releases {
		_, err := releaseStmt.ExecContext(ctx,
			position, release.Name, release.TagName, release.HTMLURL,
			release.IsPrerelease, release.PublishedAt, release.PublishedAtSort,
			release.AssetsTotal, release.DevicesTotal, release.SourcesTotal,
			release.VersionLabel, release.SearchBlob,
		)
		if err != nil {
			return fmt.Errorf("failed to insert release %s: %w", release.TagName, err)
		}

		for _, entry := range assetRoles(release) {
			if entry.asset == nil {
				continue
			}
			if err := insertAsset(ctx, assetStmt, position, entry.role, *entry.asset); err != nil {
				return fmt.Errorf("failed to insert asset for %s: %w", release.TagName, err)
			}
		}
		for _, other := range release.OtherAssets {
			if err := insertAsset(ctx, assetStmt, position, "other", other); err != nil {
				return fmt.Errorf("failed to insert asset for %s: %w", release.TagName, err)
			}
		}

		for _, device := range release.DeviceGroups {
			for _, source := range device.Sources {
				for _, row := range source.Rows {
					_, err := archiveStmt.ExecContext(ctx,
						position, device.Slug, source.Name, row.VariantLabel,
						row.AssetName, row.DownloadURL, row.SizeText,
					)
					if err != nil {
						return fmt.Errorf("failed to insert archive %s: %w", row.AssetName, err)
					}
				}
			}
		}
	}
	return nil
}

type roleEntry struct {
	role  string
	asset *github.Asset
}

func assetRoles(release *catalog.Release) []roleEntry {
	return []roleEntry{
		{"firmware_all", release.FirmwareAll},
		{"firmware_bundle", release.FirmwareBundle},
		{"checksums", release.Checksums},
		{"files_manifest", release.FilesManifest},
		{"build_info", release.BuildInfo},
		{"release_matrix", release.ReleaseMatrix},
	}
}

func insertAsset(ctx context.Context, stmt *sql.Stmt, position int, role string, asset github.Asset) error {
	_, err := stmt.ExecContext(ctx,
		position, role, asset.Name, asset.ContentType, asset.Size, asset.BrowserDownloadURL,
	)
	return err
}

func insertStats(ctx context.Context, tx *sql.Tx, cat *catalog.Catalog) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_stats (
			repo, generated_at, releases_total, devices_total,
			sources_total, variants_total, latest_stable
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cat.Repo, time.Now().UTC().Format(time.RFC3339),
		cat.Stats.ReleasesTotal, cat.Stats.DevicesTotal,
		cat.Stats.SourcesTotal, cat.Stats.VariantsTotal, cat.Stats.LatestStable,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stats: %w", err)
	}
	return nil
}
