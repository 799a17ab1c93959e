// Package config loads server configuration.
//
// Values resolve in three layers: built-in defaults, then an optional
// YAML file (EDUGUARD_CONFIG_FILE), then EDUGUARD_* environment
// variables. Later layers win, so a containerized deployment can ship a
// baseline file and override secrets from the environment.
package config
