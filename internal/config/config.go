// Package config loads per-project settings from an optional
// .engram/config.toml plus ENGRAM_* environment overrides.
package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Keys, as they appear in config.toml and (upper-snake-cased, prefixed with
// ENGRAM_) in the environment.
const (
	keyAgentID             = "agent_id"
	keySessionTimeoutHours = "session_timeout_hours"
	keyResolvedWindowHours = "resolved_window_hours"
	keyGCMaxAgeDays        = "gc_max_age_days"
	keyMaxCommits          = "max_commits"
)

// Config holds the tunable defaults for one project store.
type Config struct {
	AgentID             string
	SessionTimeoutHours int
	ResolvedWindowHours int
	GCMaxAgeDays        int
	MaxCommits          int
}

// Load reads configuration for a project directory. A missing config file is
// fine; defaults and environment variables still apply.
func Load(projectDir string) (Config, error) {
	v := viper.New()
	v.SetDefault(keyAgentID, "cli")
	v.SetDefault(keySessionTimeoutHours, 24)
	v.SetDefault(keyResolvedWindowHours, 48)
	v.SetDefault(keyGCMaxAgeDays, 90)
	v.SetDefault(keyMaxCommits, 100)

	v.SetEnvPrefix("engram")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(projectDir, ".engram"))
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	return Config{
		AgentID:             v.GetString(keyAgentID),
		SessionTimeoutHours: v.GetInt(keySessionTimeoutHours),
		ResolvedWindowHours: v.GetInt(keyResolvedWindowHours),
		GCMaxAgeDays:        v.GetInt(keyGCMaxAgeDays),
		MaxCommits:          v.GetInt(keyMaxCommits),
	}, nil
}
