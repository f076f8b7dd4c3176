// Package update replaces the running slipway binary with the latest
// GitHub release.
package update

import (
	"context"
	"fmt"
	"runtime"

	"github.com/creativeprojects/go-selfupdate"
)

// Releases are published under the bitriver org.
var repo = selfupdate.NewRepositorySlug("bitriver", "slipway")

// Release describes a published slipway version.
type Release struct {
	Version     string
	ReleaseURL  string
	PublishedAt string
	Changelog   string
}

// Check reports whether a release newer than currentVersion exists.
func Check(ctx context.Context, currentVersion string) (*Release, bool, error) {
	_, latest, err := detectNewer(ctx, currentVersion)
	if err != nil || latest == nil {
		return nil, false, err
	}
	return asRelease(latest), true, nil
}

// Apply downloads the newest release and swaps it in over the current
// executable. A nil release means the binary was already current.
func Apply(ctx context.Context, currentVersion string) (*Release, error) {
	updater, latest, err := detectNewer(ctx, currentVersion)
	if err != nil || latest == nil {
		return nil, err
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return nil, fmt.Errorf("updating binary: %w", err)
	}

	return asRelease(latest), nil
}

// Platform returns the os/arch pair releases are matched against.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}

// detectNewer resolves the latest release, returning a nil release when
// nothing newer than currentVersion is published.
func detectNewer(ctx context.Context, currentVersion string) (*selfupdate.Updater, *selfupdate.Release, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, nil, fmt.Errorf("creating update source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return nil, nil, fmt.Errorf("creating updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(ctx, repo)
	if err != nil {
		return nil, nil, fmt.Errorf("detecting latest version: %w", err)
	}
	if !found || latest.LessOrEqual(currentVersion) {
		return updater, nil, nil
	}

	return updater, latest, nil
}

func asRelease(r *selfupdate.Release) *Release {
	return &Release{
		Version:     r.Version(),
		ReleaseURL:  r.URL,
		PublishedAt: r.PublishedAt.Format("2006-01-02"),
		Changelog:   r.ReleaseNotes,
	}
}
