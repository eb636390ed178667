package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent nathia configuration stored as
// config.toml in the .nathia/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version   int             `mapstructure:"version" toml:"version"`
	Backend   BackendConfig   `mapstructure:"backend" toml:"backend"`
	Auth      AuthConfig      `mapstructure:"auth" toml:"auth"`
	History   HistoryConfig   `mapstructure:"history" toml:"history"`
	Chat      ChatConfig      `mapstructure:"chat" toml:"chat"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" toml:"ratelimit"`
	Log       LogConfig       `mapstructure:"log" toml:"log"`
}

// BackendConfig holds the backend functions endpoint settings.
type BackendConfig struct {
	BaseURL              string `mapstructure:"base_url" toml:"base_url,omitempty"`
	ChatEndpoint         string `mapstructure:"chat_endpoint" toml:"chat_endpoint,omitempty"`
	TimeoutSeconds       int    `mapstructure:"timeout_seconds" toml:"timeout_seconds,omitempty"`
	StreamTimeoutSeconds int    `mapstructure:"stream_timeout_seconds" toml:"stream_timeout_seconds,omitempty"`
}

// AuthConfig holds the session token settings. The token is typically
// supplied via NATHIA_AUTH_TOKEN rather than stored in the file.
type AuthConfig struct {
	Token string `mapstructure:"token" toml:"token,omitempty"`
}

// HistoryConfig holds conversation persistence settings. An empty
// SQLitePath disables persistence.
type HistoryConfig struct {
	SQLitePath string `mapstructure:"sqlite_path" toml:"sqlite_path,omitempty"`
}

// ChatConfig holds per-session chat preferences.
type ChatConfig struct {
	// PreferredProvider is honored only when no routing override
	// applies. Empty means automatic.
	PreferredProvider string `mapstructure:"preferred_provider" toml:"preferred_provider,omitempty"`

	// OnDevice marks local generation as available on this machine.
	OnDevice bool `mapstructure:"on_device" toml:"on_device,omitempty"`

	// MinResponseChars is the minimum trimmed length of a valid answer.
	MinResponseChars int `mapstructure:"min_response_chars" toml:"min_response_chars,omitempty"`
}

// RateLimitConfig holds the client-side send limits.
type RateLimitConfig struct {
	ChatMaxRequests    int `mapstructure:"chat_max_requests" toml:"chat_max_requests,omitempty"`
	ChatWindowSeconds  int `mapstructure:"chat_window_seconds" toml:"chat_window_seconds,omitempty"`
	BurstMaxRequests   int `mapstructure:"burst_max_requests" toml:"burst_max_requests,omitempty"`
	BurstWindowSeconds int `mapstructure:"burst_window_seconds" toml:"burst_window_seconds,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level,omitempty"`
	Format string `mapstructure:"format" toml:"format,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"backend.base_url": {
		get: func(c *Config) string { return c.Backend.BaseURL },
		set: func(c *Config, v string) error { c.Backend.BaseURL = v; return nil },
	},
	"backend.chat_endpoint": {
		get: func(c *Config) string { return c.Backend.ChatEndpoint },
		set: func(c *Config, v string) error { c.Backend.ChatEndpoint = v; return nil },
	},
	"backend.timeout_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.Backend.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for backend.timeout_seconds: %w", err)
			}
			c.Backend.TimeoutSeconds = n
			return nil
		},
	},
	"backend.stream_timeout_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.Backend.StreamTimeoutSeconds) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for backend.stream_timeout_seconds: %w", err)
			}
			c.Backend.StreamTimeoutSeconds = n
			return nil
		},
	},
	"auth.token": {
		get: func(c *Config) string { return c.Auth.Token },
		set: func(c *Config, v string) error { c.Auth.Token = v; return nil },
	},
	"history.sqlite_path": {
		get: func(c *Config) string { return c.History.SQLitePath },
		set: func(c *Config, v string) error { c.History.SQLitePath = v; return nil },
	},
	"chat.preferred_provider": {
		get: func(c *Config) string { return c.Chat.PreferredProvider },
		set: func(c *Config, v string) error { c.Chat.PreferredProvider = v; return nil },
	},
	"chat.on_device": {
		get: func(c *Config) string { return strconv.FormatBool(c.Chat.OnDevice) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for chat.on_device: %w", err)
			}
			c.Chat.OnDevice = b
			return nil
		},
	},
	"chat.min_response_chars": {
		get: func(c *Config) string { return strconv.Itoa(c.Chat.MinResponseChars) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for chat.min_response_chars: %w", err)
			}
			c.Chat.MinResponseChars = n
			return nil
		},
	},
	"ratelimit.chat_max_requests": {
		get: func(c *Config) string { return strconv.Itoa(c.RateLimit.ChatMaxRequests) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for ratelimit.chat_max_requests: %w", err)
			}
			c.RateLimit.ChatMaxRequests = n
			return nil
		},
	},
	"ratelimit.chat_window_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.RateLimit.ChatWindowSeconds) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for ratelimit.chat_window_seconds: %w", err)
			}
			c.RateLimit.ChatWindowSeconds = n
			return nil
		},
	},
	"ratelimit.burst_max_requests": {
		get: func(c *Config) string { return strconv.Itoa(c.RateLimit.BurstMaxRequests) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for ratelimit.burst_max_requests: %w", err)
			}
			c.RateLimit.BurstMaxRequests = n
			return nil
		},
	},
	"ratelimit.burst_window_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.RateLimit.BurstWindowSeconds) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for ratelimit.burst_window_seconds: %w", err)
			}
			c.RateLimit.BurstWindowSeconds = n
			return nil
		},
	},
	"log.level": {
		get: func(c *Config) string { return c.Log.Level },
		set: func(c *Config, v string) error { c.Log.Level = v; return nil },
	},
	"log.format": {
		get: func(c *Config) string { return c.Log.Format },
		set: func(c *Config, v string) error { c.Log.Format = v; return nil },
	},
}
