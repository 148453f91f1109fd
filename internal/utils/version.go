package utils

// Version is the CLI release version, overridable at build time via
// -ldflags "-X amplifier/internal/utils.Version=...".
var Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
