// Package config loads and validates YAML configuration for the order
// sync daemon. Values referencing ${VAR} are expanded from the environment
// before parsing, which is how tokens and database passwords are injected.
package config
