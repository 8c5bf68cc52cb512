// Package version exposes build metadata for packwatch.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short and Full render them for the CLI and the HTTP user agent.
package version
