// Package version exposes the build version injected via ldflags.
package version

// version is set at build time via:
//
//	-ldflags "-X github.com/bkyoung/llmwrap/internal/version.version=v1.2.3"
var version = "dev"

// Version returns the current build version.
func Version() string {
	return version
}
