// Package config loads daemon configuration from YAML with sane
// defaults. Flags layer on top in cmd/stovetop.
package config
