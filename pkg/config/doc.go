// Package config loads client configuration from an optional YAML file and
// environment variables; environment values win.
package config
