// Package gateway is the conversational AI gateway client: the single
// entry point the chat UI calls to send a message and receive the answer
// or a typed failure.
//
// A send flows one direction: safety gate → rate limiting → provider
// routing → streaming or non-streaming transport → incremental UI
// callback → normalized response. The safety gate is the outermost step;
// a blocked message returns its local template before any rate-limit
// check or network call.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/nossamaternidade/nathia/pkg/apperr"
	"github.com/nossamaternidade/nathia/pkg/classify"
	"github.com/nossamaternidade/nathia/pkg/events"
	"github.com/nossamaternidade/nathia/pkg/httpx"
	"github.com/nossamaternidade/nathia/pkg/llm"
	"github.com/nossamaternidade/nathia/pkg/llm/provider"
	"github.com/nossamaternidade/nathia/pkg/logger"
	"github.com/nossamaternidade/nathia/pkg/ratelimit"
)

// LocalProvider names the pseudo-provider of safety-gate answers.
const LocalProvider = "local"

// maxMessageChars bounds a single message's content.
const maxMessageChars = 4000

// Gateway orchestrates one chat session against the NathIA backend.
// At most one request is in flight per Gateway: starting a new send
// implicitly cancels the previous one (last-write-wins, no queueing).
type Gateway struct {
	config  Config
	limiter *ratelimit.Limiter
	router  *provider.Router
	http    *httpx.Client
	logger  *slog.Logger

	pending *pendingRequest
}

// New creates a Gateway. Returns an error when required collaborators are
// missing.
func New(config Config) (*Gateway, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if config.Session == nil {
		return nil, fmt.Errorf("session token provider is required")
	}

	config = config.withDefaults()

	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}

	limiter := config.Limiter
	if limiter == nil {
		limiter = ratelimit.New()
	}

	hc := config.HTTPClient
	var client *httpx.Client
	if hc != nil {
		client = httpx.NewWithHTTPClient(hc, log)
	} else {
		client = httpx.New(log)
	}

	return &Gateway{
		config:  config,
		limiter: limiter,
		router:  provider.NewRouter(config.Capability),
		http:    client,
		logger:  log,
		pending: newPendingRequest(),
	}, nil
}

// Send runs one message exchange end to end and returns the normalized
// response, or a typed error. Blocked messages return the fixed local
// template as a successful result with zero network calls.
func (g *Gateway) Send(ctx context.Context, messages []llm.Message, sendCtx llm.Context) (*llm.Response, error) {
	start := time.Now()

	if err := validateMessages(messages); err != nil {
		return nil, err
	}

	// Safety gate first: it short-circuits rate limiting and all I/O.
	if last, ok := llm.LastUserMessage(messages); ok {
		if result := classify.Classify(last.Content); result.ShouldBlock {
			g.logger.Warn("message blocked by safety gate",
				"block_type", result.BlockType,
			)
			resp := &llm.Response{
				Content:  result.Template,
				Provider: LocalProvider,
				Latency:  time.Since(start),
				Blocked:  true,
			}
			g.finishTurn(ctx, messages, sendCtx, resp)
			return resp, nil
		}
	}

	if err := g.checkRateLimits(); err != nil {
		return nil, err
	}

	token, err := g.config.Session.Token(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unauthorized, "", nil)
	}
	if token == "" {
		return nil, apperr.New(apperr.Unauthorized, "session token not found", "")
	}

	decision := g.router.Route(messages, sendCtx)
	g.logger.Debug("provider decision",
		"provider", decision.Provider,
		"grounding", decision.Grounding,
		"streaming", decision.Streaming,
	)

	// Replace any in-flight request: last send wins.
	sctx, release := g.pending.begin(ctx)
	defer release()

	var resp *llm.Response
	if decision.Streaming {
		resp, err = g.streamResponse(sctx, token, messages, sendCtx, decision)
		if err != nil && !apperr.IsCode(err, apperr.RequestCancelled) {
			// One fallback to the non-streaming path with the same
			// provider, then surface whatever happens.
			g.logger.Warn("streaming failed, falling back to non-streaming",
				"provider", decision.Provider,
				"error", err,
			)
			resp, err = g.fetchResponse(sctx, token, messages, sendCtx, decision)
		}
	} else {
		resp, err = g.fetchResponse(sctx, token, messages, sendCtx, decision)
	}
	if err != nil {
		return nil, err
	}

	resp.Latency = time.Since(start)
	g.postProcess(messages, resp)
	g.finishTurn(ctx, messages, sendCtx, resp)

	g.logger.Info("send completed",
		"provider", resp.Provider,
		"latency", resp.Latency,
		"total_tokens", resp.Usage.TotalTokens,
		"streamed", resp.WasStreamed,
	)

	return resp, nil
}

// Cancel abandons the current in-flight request, if any. The pending send
// fails with REQUEST_CANCELLED, which callers treat as silent.
func (g *Gateway) Cancel() {
	g.pending.cancel()
}

// checkRateLimits evaluates the burst window before the sustained one so
// the caller can present "slow down" distinctly from "limit reached".
func (g *Gateway) checkRateLimits() error {
	if !g.limiter.CanProceed(ratelimit.KeyChatBurst) {
		resetIn := g.limiter.TimeUntilReset(ratelimit.KeyChatBurst)
		return apperr.New(
			apperr.RateLimited,
			"rate limit exceeded (burst)",
			"Calma! Aguarde alguns segundos antes de enviar outra mensagem.",
		).WithContext(map[string]any{
			"key":      ratelimit.KeyChatBurst,
			"reset_in": resetIn,
		})
	}

	if !g.limiter.CanProceed(ratelimit.KeyChat) {
		resetIn := g.limiter.TimeUntilReset(ratelimit.KeyChat)
		seconds := int(math.Ceil(resetIn.Seconds()))
		return apperr.New(
			apperr.RateLimited,
			"rate limit exceeded",
			fmt.Sprintf("Você atingiu o limite de mensagens. Aguarde %ds.", seconds),
		).WithContext(map[string]any{
			"key":      ratelimit.KeyChat,
			"reset_in": resetIn,
		})
	}

	return nil
}

// finishTurn persists the exchanged messages and publishes the turn event.
// Both collaborators are best-effort: failures are logged, never surfaced.
func (g *Gateway) finishTurn(ctx context.Context, messages []llm.Message, sendCtx llm.Context, resp *llm.Response) {
	if g.config.History != nil && sendCtx.ConversationID != "" {
		if last, ok := llm.LastUserMessage(messages); ok {
			if err := g.config.History.Append(ctx, sendCtx.ConversationID, last); err != nil {
				g.logger.Warn("history append failed", "error", err)
			}
		}
		if err := g.config.History.Append(ctx, sendCtx.ConversationID, llm.AssistantMessage(resp.Content)); err != nil {
			g.logger.Warn("history append failed", "error", err)
		}
	}

	if g.config.Events != nil {
		event := events.NewTurnCompleted(sendCtx.ConversationID, resp)
		if err := g.config.Events.PublishTurn(ctx, event); err != nil {
			g.logger.Warn("turn event publish failed", "error", err)
		}
	}
}

// validateMessages rejects malformed conversations before any other step.
func validateMessages(messages []llm.Message) error {
	if len(messages) == 0 {
		return apperr.New(apperr.ValidationError, "empty conversation", "")
	}

	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
		default:
			return apperr.New(
				apperr.ValidationError,
				fmt.Sprintf("invalid role %q at message %d", msg.Role, i),
				"",
			)
		}
		if strings.TrimSpace(msg.Content) == "" {
			return apperr.New(
				apperr.ValidationError,
				fmt.Sprintf("empty content at message %d", i),
				"",
			)
		}
		if len(msg.Content) > maxMessageChars {
			return apperr.New(
				apperr.ValidationError,
				fmt.Sprintf("message %d exceeds %d characters", i, maxMessageChars),
				"",
			)
		}
	}

	return nil
}
