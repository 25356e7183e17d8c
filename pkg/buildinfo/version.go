// Package buildinfo holds version information injected at build time:
//
//	go build -ldflags "-X github.com/matzehuels/dotstim/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/dotstim/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/dotstim/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/dotstim
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

// UserAgent identifies the server in response headers.
func UserAgent() string {
	return "dotstim/" + Version
}
