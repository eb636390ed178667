package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nossamaternidade/nathia/pkg/events"
	"github.com/nossamaternidade/nathia/pkg/history"
	"github.com/nossamaternidade/nathia/pkg/llm/provider"
	"github.com/nossamaternidade/nathia/pkg/ratelimit"
	"github.com/nossamaternidade/nathia/pkg/session"
)

// Defaults for the per-send budgets. The streaming timeout is longer than
// the request timeout because SSE responses trickle in; it is still
// absolute from request start, never refreshed per chunk.
const (
	DefaultChatEndpoint  = "/nathia-chat"
	DefaultTimeout       = 45 * time.Second
	DefaultStreamTimeout = 120 * time.Second

	// DefaultMinResponseChars is the minimum trimmed length of a valid
	// answer; anything shorter is a service failure, not a response.
	DefaultMinResponseChars = 5
)

// Config is the gateway configuration.
type Config struct {
	// BaseURL is the backend functions base URL (e.g.
	// "https://project.functions.supabase.co").
	BaseURL string

	// ChatEndpoint is the chat function path (defaults to
	// DefaultChatEndpoint).
	ChatEndpoint string

	// Session supplies the bearer token for every call. Required.
	Session session.TokenProvider

	// Capability is the on-device generation probe. Nil means
	// unavailable.
	Capability provider.Capability

	// Limiter is the shared rate limiter. Nil installs the default chat
	// policies (20/min sustained, 5/10s burst).
	Limiter *ratelimit.Limiter

	// History receives the user and assistant messages of each completed
	// turn. Nil disables persistence.
	History history.Store

	// Events receives one turn-completed event per send. Nil disables
	// publishing.
	Events events.Publisher

	// OnChunk is the incremental UI callback, invoked with each streamed
	// text chunk in wire order. Nil disables live rendering.
	OnChunk func(text string)

	// OnStreaming marks streaming active/inactive for the UI.
	OnStreaming func(active bool)

	// HTTPClient overrides the underlying http.Client (tests).
	HTTPClient *http.Client

	// Timeout bounds the non-streaming request (defaults to
	// DefaultTimeout).
	Timeout time.Duration

	// StreamTimeout bounds the whole streaming request (defaults to
	// DefaultStreamTimeout).
	StreamTimeout time.Duration

	// MinResponseChars overrides DefaultMinResponseChars.
	MinResponseChars int

	// Logger receives structured logs. Nil discards them.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.ChatEndpoint == "" {
		c.ChatEndpoint = DefaultChatEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = DefaultStreamTimeout
	}
	if c.MinResponseChars <= 0 {
		c.MinResponseChars = DefaultMinResponseChars
	}
	return c
}
