package config

const (
	defaultChatEndpoint  = "/nathia-chat"
	defaultTimeout       = 45
	defaultStreamTimeout = 120

	defaultMinResponseChars = 5

	defaultChatMaxRequests    = 20
	defaultChatWindowSeconds  = 60
	defaultBurstMaxRequests   = 5
	defaultBurstWindowSeconds = 10

	defaultLogLevel  = "info"
	defaultLogFormat = "pretty"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Backend: BackendConfig{
			ChatEndpoint:         defaultChatEndpoint,
			TimeoutSeconds:       defaultTimeout,
			StreamTimeoutSeconds: defaultStreamTimeout,
		},
		Chat: ChatConfig{
			MinResponseChars: defaultMinResponseChars,
		},
		RateLimit: RateLimitConfig{
			ChatMaxRequests:    defaultChatMaxRequests,
			ChatWindowSeconds:  defaultChatWindowSeconds,
			BurstMaxRequests:   defaultBurstMaxRequests,
			BurstWindowSeconds: defaultBurstWindowSeconds,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
