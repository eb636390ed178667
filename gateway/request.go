package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/nossamaternidade/nathia/pkg/apperr"
	"github.com/nossamaternidade/nathia/pkg/httpx"
	"github.com/nossamaternidade/nathia/pkg/llm"
	"github.com/nossamaternidade/nathia/pkg/llm/provider"
	"github.com/nossamaternidade/nathia/pkg/utils"
)

// buildChatRequest assembles the POST to the chat endpoint. Streaming
// requests set the stream flag in the payload and advertise SSE in the
// Accept header; the backend may still answer with plain JSON.
func (g *Gateway) buildChatRequest(ctx context.Context, token string, messages []llm.Message, sendCtx llm.Context, decision provider.Decision, stream bool) (*http.Request, error) {
	payload := llm.ChatRequest{
		Messages:       messages,
		Provider:       string(decision.Provider),
		Grounding:      decision.Grounding,
		Stream:         stream,
		ImageData:      sendCtx.ImageData,
		ConversationID: sendCtx.ConversationID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.InvalidInput, "", nil)
	}

	url := g.config.BaseURL + g.config.ChatEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.InvalidInput, "", map[string]any{"url": url})
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-client-platform", "go-cli")
	req.Header.Set("x-client-version", utils.Version)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	return req, nil
}

// wireResponse is the backend's non-streaming answer body.
type wireResponse struct {
	Content   string         `json:"content"`
	Usage     *llm.Usage     `json:"usage"`
	Provider  string         `json:"provider"`
	Grounding *wireGrounding `json:"grounding"`
	Fallback  bool           `json:"fallback"`
}

type wireGrounding struct {
	Citations []wireCitation `json:"citations"`
}

type wireCitation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// toResponse validates the wire body and normalizes it. Content, usage
// and provider are all mandatory.
func (w wireResponse) toResponse(streamed bool) (*llm.Response, error) {
	if w.Content == "" || w.Usage == nil || w.Provider == "" {
		return nil, apperr.New(
			apperr.APIError,
			"invalid response structure from AI service",
			"Resposta inválida do servidor. Tente novamente.",
		)
	}

	resp := &llm.Response{
		Content:     w.Content,
		Usage:       *w.Usage,
		Provider:    w.Provider,
		WasStreamed: streamed,
	}
	if w.Grounding != nil {
		for _, c := range w.Grounding.Citations {
			title := c.Title
			if title == "" {
				title = "Fonte"
			}
			resp.Citations = append(resp.Citations, title)
		}
	}
	return resp, nil
}

// fetchResponse is the non-streaming path: one retried POST, one JSON
// body. Used directly for crisis, grounding, and image sends, and as the
// single fallback when streaming fails.
func (g *Gateway) fetchResponse(ctx context.Context, token string, messages []llm.Message, sendCtx llm.Context, decision provider.Decision) (*llm.Response, error) {
	resp, err := g.http.DoWithRetry(ctx, func() (*http.Request, error) {
		return g.buildChatRequest(ctx, token, messages, sendCtx, decision, false)
	}, g.config.Timeout, httpx.RetryOptions{})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, apperr.Wrap(err, apperr.APIError, "Resposta inválida do servidor. Tente novamente.", nil)
	}

	out, err := wire.toResponse(false)
	if err != nil {
		return nil, err
	}

	if wire.Fallback {
		g.logger.Warn("provider fallback used by backend", "provider", out.Provider)
	}
	g.logger.Debug("non-streaming response",
		"provider", out.Provider,
		"total_tokens", out.Usage.TotalTokens,
		"content_length", len(out.Content),
	)
	return out, nil
}
