// Package version carries build metadata, set at link time with
// -ldflags "-X github.com/veesix-networks/netbridge/pkg/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func Full() string {
	return "netbridge " + Version + " (" + Commit + ") built on " + Date
}

// API is the version reported in the OpenAPI document. Development
// builds report 0.0.0.
func API() string {
	if Version == "dev" || Version == "" {
		return "0.0.0"
	}
	if Version[0] == 'v' {
		return Version[1:]
	}
	return Version
}
