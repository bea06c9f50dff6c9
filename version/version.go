// Package version exposes the service version reported in every response envelope.
package version

import "runtime/debug"

// Version is the abaco control plane release. Overridden at build time via
// -ldflags "-X github.com/julianpistorius/abaco/version.Version=...".
var Version = "2.0.0"

// APIVersion is the versioned path segment of the HTTP surface.
const APIVersion = "v2"

// Get returns the release version, falling back to the module version
// embedded by the Go toolchain when no ldflags override was provided.
func Get() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "unknown"
}
