package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/nossamaternidade/nathia/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the NATHIA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (NATHIA_BACKEND_BASE_URL, NATHIA_AUTH_TOKEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: NATHIA_BACKEND_BASE_URL, NATHIA_AUTH_TOKEN, etc.
	v.SetEnvPrefix("NATHIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Backend
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.chat_endpoint", d.Backend.ChatEndpoint)
	v.SetDefault("backend.timeout_seconds", d.Backend.TimeoutSeconds)
	v.SetDefault("backend.stream_timeout_seconds", d.Backend.StreamTimeoutSeconds)

	// Auth
	v.SetDefault("auth.token", d.Auth.Token)

	// History
	v.SetDefault("history.sqlite_path", d.History.SQLitePath)

	// Chat
	v.SetDefault("chat.preferred_provider", d.Chat.PreferredProvider)
	v.SetDefault("chat.on_device", d.Chat.OnDevice)
	v.SetDefault("chat.min_response_chars", d.Chat.MinResponseChars)

	// Rate limiting
	v.SetDefault("ratelimit.chat_max_requests", d.RateLimit.ChatMaxRequests)
	v.SetDefault("ratelimit.chat_window_seconds", d.RateLimit.ChatWindowSeconds)
	v.SetDefault("ratelimit.burst_max_requests", d.RateLimit.BurstMaxRequests)
	v.SetDefault("ratelimit.burst_window_seconds", d.RateLimit.BurstWindowSeconds)

	// Log
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// FromViper unmarshals the viper state into a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}
