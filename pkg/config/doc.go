// Package config handles server-side configuration loading from an optional
// YAML file overlaid with environment variables (EMAIL_PROVIDER and the
// per-provider credential variables).
package config
