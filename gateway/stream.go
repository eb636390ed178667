package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/nossamaternidade/nathia/pkg/apperr"
	"github.com/nossamaternidade/nathia/pkg/llm"
	"github.com/nossamaternidade/nathia/pkg/llm/provider"
	"github.com/nossamaternidade/nathia/pkg/sse"
)

// streamResponse is the SSE path: one POST with the stream flag set, then
// incremental frames until [DONE] or end of body. When the backend
// answers with plain JSON instead of SSE, the single body is delivered as
// one synthetic chunk so the caller sees the same callback sequence.
//
// The stream timeout is absolute from request start. No per-attempt retry
// happens here; the caller falls back to the non-streaming path once.
func (g *Gateway) streamResponse(ctx context.Context, token string, messages []llm.Message, sendCtx llm.Context, decision provider.Decision) (*llm.Response, error) {
	if g.config.OnStreaming != nil {
		g.config.OnStreaming(true)
		defer g.config.OnStreaming(false)
	}

	req, err := g.buildChatRequest(ctx, token, messages, sendCtx, decision, true)
	if err != nil {
		return nil, err
	}

	httpResp, err := g.http.Do(ctx, req, g.config.StreamTimeout)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if !strings.Contains(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		g.logger.Info("SSE not available, using JSON fallback")
		return g.readJSONFallback(ctx, httpResp.Body, decision)
	}

	var (
		content strings.Builder
		usage   llm.Usage
		cites   []string

		prov   = string(decision.Provider)
		reader = sse.NewReader(httpResp.Body)
	)

	for {
		payload, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, g.streamReadError(ctx, err)
		}

		if payload == sse.Done {
			continue
		}

		var frame llm.StreamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			// Malformed frames are skipped, not fatal.
			g.logger.Debug("invalid SSE frame", "payload", payload)
			continue
		}

		if frame.Error != nil {
			msg := frame.Error.Message
			if msg == "" {
				msg = "server error"
			}
			userMsg := frame.Error.UserMessage
			if userMsg == "" {
				userMsg = "Erro no servidor. Tente novamente."
			}
			return nil, apperr.New(apperr.AIServiceError, msg, userMsg)
		}

		if frame.Chunk != "" {
			content.WriteString(frame.Chunk)
			if g.config.OnChunk != nil {
				g.config.OnChunk(frame.Chunk)
			}
		}

		// Thinking content is model-internal: logged, never rendered.
		if frame.Thinking != "" {
			g.logger.Debug("thinking block received", "length", len(frame.Thinking))
		}

		if frame.Usage != nil {
			usage = *frame.Usage
		}
		if frame.Provider != "" {
			prov = frame.Provider
		}
		if len(frame.Citations) > 0 {
			cites = frame.Citations
		}
	}

	full := content.String()
	if len(strings.TrimSpace(full)) < g.config.MinResponseChars {
		g.logger.Warn("AI response too short", "content_length", len(full))
		return nil, apperr.New(
			apperr.AIServiceError,
			"AI response too short",
			"A resposta da NathIA foi muito curta. Tente reformular sua pergunta.",
		)
	}

	g.logger.Debug("SSE stream completed",
		"provider", prov,
		"content_length", len(full),
		"total_tokens", usage.TotalTokens,
	)

	return &llm.Response{
		Content:     full,
		Usage:       usage,
		Provider:    prov,
		WasStreamed: true,
		Citations:   cites,
	}, nil
}

// readJSONFallback consumes a plain JSON body on the streaming path and
// replays it as one chunk.
func (g *Gateway) readJSONFallback(ctx context.Context, body io.Reader, decision provider.Decision) (*llm.Response, error) {
	var wire wireResponse
	if err := json.NewDecoder(body).Decode(&wire); err != nil {
		return nil, g.streamReadError(ctx, err)
	}
	if wire.Provider == "" {
		wire.Provider = string(decision.Provider)
	}
	if wire.Usage == nil {
		wire.Usage = &llm.Usage{}
	}

	resp, err := wire.toResponse(false)
	if err != nil {
		return nil, err
	}
	if g.config.OnChunk != nil {
		g.config.OnChunk(resp.Content)
	}
	return resp, nil
}

// streamReadError types a mid-stream read failure, keeping user
// cancellation distinguishable from the absolute stream deadline.
func (g *Gateway) streamReadError(ctx context.Context, err error) error {
	if typed, ok := apperr.As(err); ok {
		return typed
	}
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return apperr.New(apperr.RequestCancelled, "stream cancelled", "").WithCause(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.RequestTimeout, "stream timed out", "").WithCause(err)
	}

	code := apperr.Classify(err)
	if code == apperr.Unknown {
		code = apperr.AIServiceError
	}
	return apperr.Wrap(err, code, "Não consegui processar sua mensagem. Tente novamente.", nil)
}
