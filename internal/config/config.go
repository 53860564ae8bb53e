// Package config loads and validates the tool configuration.
//
// Configuration merges three sources, strongest first: environment
// variables, an optional YAML file, and struct defaults. The merged
// result is validated against an embedded CUE schema before any command
// runs, so a bad value fails at startup with the offending path named.
//
// The remote provisioning key is not configuration. It is a secret, read
// from the environment only, never from a file and never logged.
package config

import (
	"log/slog"
	"os"
	"time"
)

// Config is the root tool configuration.
type Config struct {
	Remote RemoteConfig `yaml:"remote" json:"remote"`
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`
	Files  FilesConfig  `yaml:"files" json:"files"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// RemoteConfig holds remote key-service settings.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url" env:"REMOTE_BASE_URL" env-default:"https://openrouter.ai/api/v1"`
	Timeout time.Duration `yaml:"timeout"  json:"timeout"  env:"REMOTE_TIMEOUT"  env-default:"30s"`
}

// PacingConfig throttles consecutive remote mutations.
type PacingConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval" env:"PACING_INTERVAL" env-default:"1s"`
}

// FilesConfig names the operator-facing files and prefixes.
type FilesConfig struct {
	Roster            string `yaml:"roster"             json:"roster"             env:"FILES_ROSTER"             env-default:"roster.csv"`
	Limits            string `yaml:"limits"             json:"limits"             env:"FILES_LIMITS"             env-default:"limits.csv"`
	Database          string `yaml:"database"           json:"database"           env:"FILES_DATABASE"           env-default:"keys.db"`
	SnapshotPrefix    string `yaml:"snapshot_prefix"    json:"snapshot_prefix"    env:"FILES_SNAPSHOT_PREFIX"    env-default:"snapshot"`
	ExportPrefix      string `yaml:"export_prefix"      json:"export_prefix"      env:"FILES_EXPORT_PREFIX"      env-default:"api_keys"`
	PlaceholderDomain string `yaml:"placeholder_domain" json:"placeholder_domain" env:"FILES_PLACEHOLDER_DOMAIN" env-default:"@FIXME.mq.edu.au"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" json:"level" env:"LOG_LEVEL" env-default:"info"`
}

// SlogLevel maps the configured level onto log/slog's scale. The schema
// restricts the value to the four names handled here.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ProvisioningKey returns the remote service secret from the
// environment. Empty means unset; commands that talk to the remote
// service refuse to start without it.
func ProvisioningKey() string {
	return os.Getenv("OPENROUTER_PROVISIONING_KEY")
}
