// Package config provides configuration loading and validation for the
// voice pipeline. It handles YAML-based configuration with struct
// validation and environment variable overrides for credentials.
package config
