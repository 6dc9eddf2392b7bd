// Package version reports build information for the featurize binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo contains the build information printed by -version
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Module    string `json:"module"`
	Dirty     bool   `json:"dirty"`
	// Arrow is the arrow-go version linked into the binary, when known
	Arrow string `json:"arrow"`
}

// Info returns the build information
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		Dirty:     strings.HasSuffix(GitCommit, "-dirty"),
		Arrow:     unknownValue,
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.Module = buildInfo.Main.Path
		for _, dep := range buildInfo.Deps {
			if strings.HasPrefix(dep.Path, "github.com/apache/arrow-go/") {
				info.Arrow = dep.Version
			}
		}
	}
	return info
}

// ShortCommit returns the abbreviated commit hash
func (b BuildInfo) ShortCommit() string {
	commit := strings.TrimSuffix(b.GitCommit, "-dirty")
	if len(commit) > commitHashLength {
		commit = commit[:commitHashLength]
	}
	return commit
}

// String returns a formatted version string
func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "featurize %s", b.Version)
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")

	if b.BuildDate != unknownValue {
		fmt.Fprintf(&sb, "Build Date: %s\n", b.BuildDate)
	}
	if b.GitCommit != unknownValue {
		fmt.Fprintf(&sb, "Git Commit: %s\n", b.ShortCommit())
	}
	fmt.Fprintf(&sb, "Go Version: %s\n", b.GoVersion)
	if b.Arrow != unknownValue {
		fmt.Fprintf(&sb, "Arrow: %s\n", b.Arrow)
	}
	return sb.String()
}

// Fields returns the build information as log fields.
func (b BuildInfo) Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", b.Version),
		zap.String("commit", b.ShortCommit()),
		zap.String("go", b.GoVersion),
	}
}
