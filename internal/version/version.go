// Package version holds build metadata, set at link time by the release tooling.
package version

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
