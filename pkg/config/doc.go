// Package config loads node configuration from a YAML file, the way the
// teacher's cmd/warren/apply.go loads resource manifests, with optional
// .env overrides for local development.
package config
