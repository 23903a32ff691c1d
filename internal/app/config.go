package app

import "time"

// Config holds runtime configuration for the application. Provider choice,
// keys and prompt live in the settings file; Config covers the run itself.
type Config struct {
	// InputPath is a file path, an http(s) URL, or "-" for stdin.
	InputPath string
	// OutputPath receives the result. Empty writes to stdout.
	OutputPath string

	SettingsPath string
	EnvFiles     []string

	// Model and MaxLength override the settings when non-zero.
	Model     string
	MaxLength int

	// Extractor selects the extraction strategy: "heuristic" or "readability".
	Extractor string

	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	NoCache          bool

	Timeout   time.Duration
	UserAgent string
	Verbose   bool
}

// DefaultUserAgent identifies page fetches.
const DefaultUserAgent = "pagedigest/1.0 (+https://github.com/hyperifyio/pagedigest)"

// DefaultTimeout bounds each page fetch and each remote call.
const DefaultTimeout = 60 * time.Second
