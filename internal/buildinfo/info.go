package buildinfo

// ParserVersion is stamped on every parsed row. Bump it when parsing output changes shape.
const ParserVersion = "stmt-parser/3"

var (
	// Version will be set via ldflags during build.
	Version = "dev"
	// Commit will be set via ldflags during build.
	Commit = "none"
	// Date will be set via ldflags during build.
	Date = "unknown"
)

// String returns the version line printed by --version.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ", parser: " + ParserVersion + ")"
}
