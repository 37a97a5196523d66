// Package buildinfo carries version metadata set at link time:
//
//	go build -ldflags "-X github.com/modoterra/logtap/internal/buildinfo.Version=v0.3.0"
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build metadata for version commands.
func String(binary string) string {
	return binary + " " + Version + " (" + Commit + ") built " + Date
}
