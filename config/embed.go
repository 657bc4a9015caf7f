// Package config provides the embedded default configuration for chatterm.
package config

import (
	_ "embed"
)

// DefaultConfigYAML is used when no configuration file exists, and is what
// `chatterm config create` writes out.
//
//go:embed config.default.yaml
var DefaultConfigYAML []byte
