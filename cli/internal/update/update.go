package update

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/go-version"

	cliversion "github.com/heliosql/helio-go/cli/internal/version"
	"github.com/heliosql/helio-go/cli/internal/ui"
)

// CheckEngineCompatibility reports whether the CLI supports the given engine
// release.
func CheckEngineCompatibility(engineVersion string) error {
	engine, err := version.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version %q: %w", engineVersion, err)
	}
	minimum, err := version.NewVersion(cliversion.MinEngineVersion)
	if err != nil {
		return fmt.Errorf("invalid minimum version format: %w", err)
	}
	if engine.LessThan(minimum) {
		return fmt.Errorf("engine version %s is older than the minimum supported %s", engineVersion, cliversion.MinEngineVersion)
	}
	return nil
}

// CheckForUpdates compares the running CLI against the latest known release
// and prints a notice when an update is available.
func CheckForUpdates(currentVersion, latestVersion string) error {
	current, err := version.NewVersion(currentVersion)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}
	latest, err := version.NewVersion(latestVersion)
	if err != nil {
		return fmt.Errorf("invalid latest version format: %w", err)
	}

	if current.LessThan(latest) {
		ui.PrintWarning("A new version is available!")
		fmt.Printf("Current version: %s\n", currentVersion)
		fmt.Printf("Latest version:  %s\n", latestVersion)
		fmt.Printf("\nUpdate with: go install github.com/heliosql/helio-go/cli@latest\n")
		fmt.Printf("Or download:  %s\n", GetDownloadURL(latestVersion))
	}
	return nil
}

// GetDownloadURL returns the release download URL for the current platform.
func GetDownloadURL(v string) string {
	return fmt.Sprintf("https://github.com/heliosql/helio-go/releases/download/v%s/helio-%s-%s", v, runtime.GOOS, runtime.GOARCH)
}
