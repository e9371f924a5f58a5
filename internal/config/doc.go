// Package config loads, normalizes, and validates aurb CLI configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads TOML files, and honours environment fallbacks such as
// AURB_REGISTRY_PASSWORD. Command flags override the loaded values.
package config
