package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/nossamaternidade/nathia/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .nathia/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the list of all supported configuration key
// names in a stable order matching the TOML section layout.
func ValidConfigKeys() []string {
	ordered := []string{
		"backend.base_url",
		"backend.chat_endpoint",
		"backend.timeout_seconds",
		"backend.stream_timeout_seconds",
		"auth.token",
		"history.sqlite_path",
		"chat.preferred_provider",
		"chat.on_device",
		"chat.min_response_chars",
		"ratelimit.chat_max_requests",
		"ratelimit.chat_window_seconds",
		"ratelimit.burst_max_requests",
		"ratelimit.burst_window_seconds",
		"log.level",
		"log.format",
	}

	// Sanity: only return keys that actually exist in the map, then
	// append any keys in the map that the ordered list missed.
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target
// .nathia/ directory. If the file does not exist, returns
// NewDefaultConfig() so callers always receive a fully-populated Config
// with sane defaults. Fields explicitly set in the file override the
// defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	v := viper.New()
	setViperDefaults(v)
	v.SetConfigFile(c.targetPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return FromViper(v)
}

// SaveConfig persists the configuration to config.toml in the target
// .nathia/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("version", cfg.Version)
	v.Set("backend.base_url", cfg.Backend.BaseURL)
	v.Set("backend.chat_endpoint", cfg.Backend.ChatEndpoint)
	v.Set("backend.timeout_seconds", cfg.Backend.TimeoutSeconds)
	v.Set("backend.stream_timeout_seconds", cfg.Backend.StreamTimeoutSeconds)
	v.Set("auth.token", cfg.Auth.Token)
	v.Set("history.sqlite_path", cfg.History.SQLitePath)
	v.Set("chat.preferred_provider", cfg.Chat.PreferredProvider)
	v.Set("chat.on_device", cfg.Chat.OnDevice)
	v.Set("chat.min_response_chars", cfg.Chat.MinResponseChars)
	v.Set("ratelimit.chat_max_requests", cfg.RateLimit.ChatMaxRequests)
	v.Set("ratelimit.chat_window_seconds", cfg.RateLimit.ChatWindowSeconds)
	v.Set("ratelimit.burst_max_requests", cfg.RateLimit.BurstMaxRequests)
	v.Set("ratelimit.burst_window_seconds", cfg.RateLimit.BurstWindowSeconds)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)

	if err := v.WriteConfigAs(c.targetPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}
