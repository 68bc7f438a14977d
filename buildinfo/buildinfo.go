package buildinfo

// Set with -ldflags "-X github.com/ozontech/seq-registry/buildinfo.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
)
