package version

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	semver "github.com/Masterminds/semver/v3"
	selfupdate "github.com/creativeprojects/go-selfupdate"

	"tablero/internal/cache"
	"tablero/internal/logger"
	"tablero/internal/usercfg"
)

const (
	updateCheckTTL  = 24 * time.Hour
	updateCacheFile = "update_check.json"
	RepoSlug        = "tablero-app/tablero"
)

// UpdateCheckResult holds the outcome of a background update check.
type UpdateCheckResult struct {
	NewVersion string // empty means no update available (or check skipped/failed)
}

type updateCache struct {
	LatestVersion  string `json:"latest_version"`
	CheckedVersion string `json:"checked_version"` // version that was running when we last checked
}

// detectLatest is swapped in tests.
var detectLatest = func(ctx context.Context) (string, bool, error) {
	updater, err := newUpdater()
	if err != nil {
		return "", false, err
	}
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(RepoSlug))
	if err != nil || !found {
		return "", found, err
	}
	return latest.Version(), true, nil
}

// StartUpdateCheck launches a background goroutine that checks for updates.
// Returns a channel that will receive exactly one result.
func StartUpdateCheck() <-chan UpdateCheckResult {
	ch := make(chan UpdateCheckResult, 1)
	go func() {
		defer close(ch)
		ch <- UpdateCheckResult{NewVersion: checkForUpdate(GetShortVersion())}
	}()
	return ch
}

func checkForUpdate(current string) string {
	if current == "dev" {
		return ""
	}

	// A cached answer only counts for the version that asked.
	if cached, checkedVer, ok := loadUpdateCache(); ok && checkedVer == current {
		if cached != "" && isNewerThan(cached, current) {
			return cached
		}
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	latest, found, err := detectLatest(ctx)
	if err != nil || !found {
		logger.Debug("update check: found=%v err=%v", found, err)
		// Cache current version so we don't hammer GitHub when offline
		saveUpdateCache(current, current)
		return ""
	}

	saveUpdateCache(latest, current)
	if !isNewerThan(latest, current) {
		return ""
	}
	return latest
}

// Update replaces the running binary with the latest release. It returns
// the installed version, or "" when already current.
func Update(ctx context.Context, current string) (string, error) {
	if current == "dev" {
		return "", fmt.Errorf("cannot self-update a dev build")
	}
	updater, err := newUpdater()
	if err != nil {
		return "", fmt.Errorf("failed to create updater: %w", err)
	}
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(RepoSlug))
	if err != nil {
		return "", fmt.Errorf("update check failed: %w", err)
	}
	if !found {
		return "", fmt.Errorf("no release found for your OS/architecture")
	}
	if latest.LessOrEqual(current) {
		return "", nil
	}
	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return "", fmt.Errorf("could not locate executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return "", fmt.Errorf("update failed: %w", err)
	}
	saveUpdateCache(latest.Version(), latest.Version())
	return latest.Version(), nil
}

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, err
	}
	return selfupdate.NewUpdater(selfupdate.Config{
		Source:    source,
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"},
	})
}

func isNewerThan(latest, current string) bool {
	lv, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	cv, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	return lv.GreaterThan(cv)
}

func updateCachePath() string {
	dir := usercfg.Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, updateCacheFile)
}

func loadUpdateCache() (string, string, bool) {
	return loadUpdateCacheFrom(updateCachePath())
}

func saveUpdateCache(latestVersion, checkedVersion string) {
	saveUpdateCacheTo(updateCachePath(), latestVersion, checkedVersion)
}

func loadUpdateCacheFrom(path string) (string, string, bool) {
	c, _, ok := cache.Load[updateCache](path, updateCheckTTL)
	if !ok {
		return "", "", false
	}
	return c.LatestVersion, c.CheckedVersion, true
}

func saveUpdateCacheTo(path string, latestVersion, checkedVersion string) {
	if err := cache.Save(path, updateCache{LatestVersion: latestVersion, CheckedVersion: checkedVersion}); err != nil {
		logger.Debug("failed to write update cache: %v", err)
	}
}
