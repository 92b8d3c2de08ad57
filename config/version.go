package config

// Set at build time via -ldflags.
var (
	Version    string = "dev"
	CommitHash string = ""
)
