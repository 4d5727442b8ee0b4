// Package config holds the host tooling's configuration: log settings,
// the debug server's listen address, and the on-disk trace database
// path. The scheduler core itself is unconfigured beyond its
// constructor arguments; this struct configures only the surrounding
// CLI/server/trace-store tooling.
package config

// Config holds configuration for the cosched CLI and debug server.
type Config struct {
	Addr      string // debug server listen address (default ":8090")
	LogLevel  string // log level: debug, info, warn, error
	LogFormat string // log format: text, json
	TraceDB   string // SQLite trace database path ("" disables tracing, ":memory:" for testing)
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Addr:      ":8090",
		LogLevel:  "info",
		LogFormat: "text",
	}
}
