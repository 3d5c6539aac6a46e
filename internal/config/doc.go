// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config.yaml. The broker and
// worker binaries share one schema so a single file can describe a deployment.
package config
