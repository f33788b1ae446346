// Package config loads, validates, and normalizes recap's TOML configuration.
package config
