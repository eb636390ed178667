package gateway_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nossamaternidade/nathia/gateway"
	"github.com/nossamaternidade/nathia/pkg/apperr"
	"github.com/nossamaternidade/nathia/pkg/classify"
	"github.com/nossamaternidade/nathia/pkg/events"
	"github.com/nossamaternidade/nathia/pkg/llm"
	"github.com/nossamaternidade/nathia/pkg/llm/provider"
	"github.com/nossamaternidade/nathia/pkg/ratelimit"
	"github.com/nossamaternidade/nathia/pkg/session"
)

// recordingStore captures history appends in memory.
type recordingStore struct {
	mu       sync.Mutex
	appended map[string][]llm.Message
}

func newRecordingStore() *recordingStore {
	return &recordingStore{appended: map[string][]llm.Message{}}
}

func (s *recordingStore) Append(_ context.Context, conversationID string, msg llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended[conversationID] = append(s.appended[conversationID], msg)
	return nil
}

func (s *recordingStore) Messages(_ context.Context, conversationID string) ([]llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appended[conversationID], nil
}

func (s *recordingStore) Close() error { return nil }

// recordingPublisher captures published turn events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.TurnCompletedEvent
}

func (p *recordingPublisher) PublishTurn(_ context.Context, event *events.TurnCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []*events.TurnCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.TurnCompletedEvent(nil), p.events...)
}

var _ = Describe("Gateway", func() {
	var (
		hits    atomic.Int32
		handler atomic.Value // stores http.HandlerFunc
		server  *httptest.Server

		chunkMu sync.Mutex
		chunks  []string
	)

	conversation := func(last string) []llm.Message {
		return []llm.Message{llm.UserMessage(last)}
	}

	decodeRequest := func(r *http.Request) llm.ChatRequest {
		var payload llm.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&payload)
		return payload
	}

	writeJSON := func(w http.ResponseWriter, content, prov string) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"content":%q,"usage":{"promptTokens":10,"completionTokens":20,"totalTokens":30},"provider":%q}`, content, prov)
	}

	writeFrame := func(w http.ResponseWriter, frame string) {
		fmt.Fprintf(w, "data: %s\n\n", frame)
		w.(http.Flusher).Flush()
	}

	recordedChunks := func() []string {
		chunkMu.Lock()
		defer chunkMu.Unlock()
		return append([]string(nil), chunks...)
	}

	newGateway := func(mutate func(*gateway.Config)) *gateway.Gateway {
		cfg := gateway.Config{
			BaseURL:    server.URL,
			Session:    session.Static("test-token"),
			HTTPClient: server.Client(),
			OnChunk: func(text string) {
				chunkMu.Lock()
				chunks = append(chunks, text)
				chunkMu.Unlock()
			},
		}
		if mutate != nil {
			mutate(&cfg)
		}
		gw, err := gateway.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		return gw
	}

	BeforeEach(func() {
		hits.Store(0)
		chunkMu.Lock()
		chunks = nil
		chunkMu.Unlock()

		handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, "Resposta padrão do servidor de teste.", "gemini")
		}))
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			handler.Load().(http.HandlerFunc)(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("New", func() {
		It("requires a base URL", func() {
			_, err := gateway.New(gateway.Config{Session: session.Static("t")})
			Expect(err).To(HaveOccurred())
		})

		It("requires a session provider", func() {
			_, err := gateway.New(gateway.Config{BaseURL: server.URL})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("safety gate", func() {
		It("answers crisis messages locally without any network call", func() {
			store := newRecordingStore()
			pub := &recordingPublisher{}
			gw := newGateway(func(c *gateway.Config) {
				c.History = store
				c.Events = pub
			})

			resp, err := gw.Send(context.Background(), conversation("quero morrer"), llm.Context{ConversationID: "conv-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Blocked).To(BeTrue())
			Expect(resp.Provider).To(Equal(gateway.LocalProvider))
			Expect(resp.Content).To(Equal(classify.CrisisTemplate))
			Expect(resp.Content).To(ContainSubstring("CVV: 188"))
			Expect(hits.Load()).To(BeZero())

			// The blocked turn still reaches history and events.
			msgs, err := store.Messages(context.Background(), "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(llm.RoleUser))
			Expect(msgs[1].Role).To(Equal(llm.RoleAssistant))
			Expect(msgs[1].Content).To(Equal(classify.CrisisTemplate))

			published := pub.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Blocked).To(BeTrue())
			Expect(published[0].Provider).To(Equal(gateway.LocalProvider))
		})

		It("answers medical dosage questions locally", func() {
			gw := newGateway(nil)
			resp, err := gw.Send(context.Background(), conversation("que remédio posso tomar para dor?"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Blocked).To(BeTrue())
			Expect(resp.Content).To(Equal(classify.MedicalTemplate))
			Expect(hits.Load()).To(BeZero())
		})
	})

	Describe("validation", func() {
		var gw *gateway.Gateway

		BeforeEach(func() {
			gw = newGateway(nil)
		})

		It("rejects an empty conversation", func() {
			_, err := gw.Send(context.Background(), nil, llm.Context{})
			Expect(apperr.IsCode(err, apperr.ValidationError)).To(BeTrue())
		})

		It("rejects unknown roles", func() {
			msgs := []llm.Message{{Role: "narrator", Content: "oi"}}
			_, err := gw.Send(context.Background(), msgs, llm.Context{})
			Expect(apperr.IsCode(err, apperr.ValidationError)).To(BeTrue())
		})

		It("rejects blank content", func() {
			msgs := []llm.Message{{Role: llm.RoleUser, Content: "   "}}
			_, err := gw.Send(context.Background(), msgs, llm.Context{})
			Expect(apperr.IsCode(err, apperr.ValidationError)).To(BeTrue())
		})

		It("rejects oversized content", func() {
			msgs := []llm.Message{llm.UserMessage(strings.Repeat("a", 4001))}
			_, err := gw.Send(context.Background(), msgs, llm.Context{})
			Expect(apperr.IsCode(err, apperr.ValidationError)).To(BeTrue())
		})

		It("never dispatches invalid conversations", func() {
			_, _ = gw.Send(context.Background(), nil, llm.Context{})
			Expect(hits.Load()).To(BeZero())
		})
	})

	Describe("authentication", func() {
		It("fails with UNAUTHORIZED when no session token exists", func() {
			gw := newGateway(func(c *gateway.Config) {
				c.Session = session.Static("")
			})
			_, err := gw.Send(context.Background(), conversation("oi, tudo bem?"), llm.Context{})
			Expect(apperr.IsCode(err, apperr.Unauthorized)).To(BeTrue())
			Expect(hits.Load()).To(BeZero())
		})

		It("propagates token provider failures as UNAUTHORIZED", func() {
			gw := newGateway(func(c *gateway.Config) {
				c.Session = session.ProviderFunc(func(context.Context) (string, error) {
					return "", fmt.Errorf("keychain unavailable")
				})
			})
			_, err := gw.Send(context.Background(), conversation("oi, tudo bem?"), llm.Context{})
			Expect(apperr.IsCode(err, apperr.Unauthorized)).To(BeTrue())
		})
	})

	Describe("rate limiting", func() {
		It("rejects burst traffic with a slow-down message", func() {
			limiter := ratelimit.New()
			limiter.SetConfig(ratelimit.KeyChatBurst, ratelimit.Config{MaxRequests: 1, Window: 10 * time.Second})
			gw := newGateway(func(c *gateway.Config) {
				c.Limiter = limiter
			})

			_, err := gw.Send(context.Background(), conversation("primeira mensagem"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())

			_, err = gw.Send(context.Background(), conversation("segunda mensagem"), llm.Context{})
			Expect(apperr.IsCode(err, apperr.RateLimited)).To(BeTrue())
			typed, ok := apperr.As(err)
			Expect(ok).To(BeTrue())
			Expect(typed.UserMsg).To(Equal("Calma! Aguarde alguns segundos antes de enviar outra mensagem."))
			Expect(hits.Load()).To(Equal(int32(1)))
		})

		It("rejects sustained traffic with the reset countdown", func() {
			limiter := ratelimit.New()
			limiter.SetConfig(ratelimit.KeyChat, ratelimit.Config{MaxRequests: 1, Window: time.Minute})
			gw := newGateway(func(c *gateway.Config) {
				c.Limiter = limiter
			})

			_, err := gw.Send(context.Background(), conversation("primeira mensagem"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())

			_, err = gw.Send(context.Background(), conversation("segunda mensagem"), llm.Context{})
			Expect(apperr.IsCode(err, apperr.RateLimited)).To(BeTrue())
			typed, ok := apperr.As(err)
			Expect(ok).To(BeTrue())
			Expect(typed.UserMsg).To(MatchRegexp(`Você atingiu o limite de mensagens\. Aguarde \d+s\.`))
		})

		It("does not consume the limit for blocked messages", func() {
			limiter := ratelimit.New()
			limiter.SetConfig(ratelimit.KeyChatBurst, ratelimit.Config{MaxRequests: 1, Window: 10 * time.Second})
			gw := newGateway(func(c *gateway.Config) {
				c.Limiter = limiter
			})

			_, err := gw.Send(context.Background(), conversation("quero morrer"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())

			_, err = gw.Send(context.Background(), conversation("mensagem normal depois"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("streaming", func() {
		It("accumulates chunks in wire order and reports usage and provider", func() {
			seenPayload := make(chan llm.ChatRequest, 1)
			seenHeader := make(chan http.Header, 1)
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenPayload <- decodeRequest(r)
				seenHeader <- r.Header.Clone()

				w.Header().Set("Content-Type", "text/event-stream")
				writeFrame(w, `{"chunk":"Olá! "}`)
				writeFrame(w, `{"chunk":"Que bom falar com você."}`)
				writeFrame(w, `{"usage":{"promptTokens":12,"completionTokens":8,"totalTokens":20}}`)
				writeFrame(w, `{"provider":"gemini"}`)
				writeFrame(w, "[DONE]")
			}))

			gw := newGateway(nil)
			resp, err := gw.Send(context.Background(), conversation("me conta uma novidade"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.WasStreamed).To(BeTrue())
			Expect(resp.Content).To(Equal("Olá! Que bom falar com você."))
			Expect(resp.Provider).To(Equal(provider.Gemini))
			Expect(resp.Usage.TotalTokens).To(Equal(20))
			Expect(recordedChunks()).To(Equal([]string{"Olá! ", "Que bom falar com você."}))
			Expect(hits.Load()).To(Equal(int32(1)))

			var payload llm.ChatRequest
			Expect(seenPayload).To(Receive(&payload))
			Expect(payload.Stream).To(BeTrue())

			var header http.Header
			Expect(seenHeader).To(Receive(&header))
			Expect(header.Get("Accept")).To(Equal("text/event-stream"))
			Expect(header.Get("Authorization")).To(Equal("Bearer test-token"))
			Expect(header.Get("X-Client-Platform")).To(Equal("go-cli"))
		})

		It("skips malformed frames instead of failing the stream", func() {
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				writeFrame(w, `{"chunk":"Resposta "}`)
				writeFrame(w, `{nope`)
				writeFrame(w, `{"chunk":"completa."}`)
				writeFrame(w, "[DONE]")
			}))

			gw := newGateway(nil)
			resp, err := gw.Send(context.Background(), conversation("pergunta qualquer"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Resposta completa."))
		})

		It("replays a plain JSON body as one chunk when SSE is unavailable", func() {
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, "Resposta em JSON puro do servidor.", "openai")
			}))

			gw := newGateway(nil)
			resp, err := gw.Send(context.Background(), conversation("pergunta qualquer"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.WasStreamed).To(BeFalse())
			Expect(resp.Provider).To(Equal("openai"))
			Expect(recordedChunks()).To(Equal([]string{"Resposta em JSON puro do servidor."}))
			Expect(hits.Load()).To(Equal(int32(1)))
		})

		It("falls back to the non-streaming path when the stream is too short", func() {
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				payload := decodeRequest(r)
				if payload.Stream {
					w.Header().Set("Content-Type", "text/event-stream")
					writeFrame(w, `{"chunk":"oi"}`)
					writeFrame(w, "[DONE]")
					return
				}
				writeJSON(w, "Resposta completa pelo caminho não-streaming.", "gemini")
			}))

			gw := newGateway(nil)
			resp, err := gw.Send(context.Background(), conversation("me explica isso direito"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.WasStreamed).To(BeFalse())
			Expect(resp.Content).To(Equal("Resposta completa pelo caminho não-streaming."))
			Expect(hits.Load()).To(Equal(int32(2)))
		})

		It("falls back once when the server emits an error frame", func() {
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				payload := decodeRequest(r)
				if payload.Stream {
					w.Header().Set("Content-Type", "text/event-stream")
					writeFrame(w, `{"error":{"message":"model overloaded","userMessage":"Tente de novo em instantes."}}`)
					return
				}
				writeJSON(w, "Resposta recuperada após a falha do stream.", "gemini")
			}))

			gw := newGateway(nil)
			resp, err := gw.Send(context.Background(), conversation("pergunta qualquer"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Resposta recuperada após a falha do stream."))
			Expect(hits.Load()).To(Equal(int32(2)))
		})

		It("surfaces the fallback error when both paths fail", func() {
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				payload := decodeRequest(r)
				if payload.Stream {
					w.Header().Set("Content-Type", "text/event-stream")
					writeFrame(w, `{"error":{"message":"model overloaded"}}`)
					return
				}
				w.WriteHeader(http.StatusServiceUnavailable)
			}))

			gw := newGateway(nil)
			_, err := gw.Send(context.Background(), conversation("pergunta qualquer"), llm.Context{})
			Expect(apperr.IsCode(err, apperr.APIError)).To(BeTrue())
			typed, ok := apperr.As(err)
			Expect(ok).To(BeTrue())
			Expect(typed.Context).To(HaveKeyWithValue("status", http.StatusServiceUnavailable))
			Expect(hits.Load()).To(Equal(int32(2)))
		})
	})

	Describe("cancellation", func() {
		It("fails with REQUEST_CANCELLED and never falls back", func() {
			firstChunk := make(chan struct{})
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				writeFrame(w, `{"chunk":"Começando a resposta"}`)
				<-r.Context().Done()
			}))

			gw := newGateway(func(c *gateway.Config) {
				onChunk := c.OnChunk
				var once sync.Once
				c.OnChunk = func(text string) {
					onChunk(text)
					once.Do(func() { close(firstChunk) })
				}
			})

			go func() {
				defer GinkgoRecover()
				select {
				case <-firstChunk:
					gw.Cancel()
				case <-time.After(5 * time.Second):
				}
			}()

			_, err := gw.Send(context.Background(), conversation("pergunta demorada"), llm.Context{})
			Expect(apperr.IsCode(err, apperr.RequestCancelled)).To(BeTrue())
			Expect(hits.Load()).To(Equal(int32(1)))
		})

		It("cancels the in-flight send when a new one starts", func() {
			firstChunk := make(chan struct{})
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				payload := decodeRequest(r)
				if payload.Stream {
					w.Header().Set("Content-Type", "text/event-stream")
					writeFrame(w, `{"chunk":"Primeira resposta em andamento"}`)
					<-r.Context().Done()
					return
				}
				writeJSON(w, "Resposta da segunda mensagem venceu.", "claude")
			}))

			gw := newGateway(func(c *gateway.Config) {
				onChunk := c.OnChunk
				var once sync.Once
				c.OnChunk = func(text string) {
					onChunk(text)
					once.Do(func() { close(firstChunk) })
				}
			})

			errCh := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := gw.Send(context.Background(), conversation("primeira pergunta"), llm.Context{})
				errCh <- err
			}()

			Eventually(firstChunk, 5*time.Second).Should(BeClosed())

			image := &llm.ImageData{Base64: "aGk=", MediaType: "image/png"}
			resp, err := gw.Send(context.Background(), conversation("segunda pergunta"), llm.Context{ImageData: image})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Resposta da segunda mensagem venceu."))

			var firstErr error
			Eventually(errCh, 5*time.Second).Should(Receive(&firstErr))
			Expect(apperr.IsCode(firstErr, apperr.RequestCancelled)).To(BeTrue())
		})
	})

	Describe("cancellation between retry attempts", func() {
		It("stays typed when the cancel lands in the retry backoff", func() {
			closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			url := closed.URL
			closed.Close()

			gw, err := gateway.New(gateway.Config{
				BaseURL: url,
				Session: session.Static("test-token"),
			})
			Expect(err).NotTo(HaveOccurred())

			// First attempt fails fast on the closed port; the cancel
			// arrives while the non-streaming path sleeps before retrying.
			go func() {
				defer GinkgoRecover()
				time.Sleep(100 * time.Millisecond)
				gw.Cancel()
			}()

			image := &llm.ImageData{Base64: "aGk=", MediaType: "image/png"}
			_, err = gw.Send(context.Background(), conversation("olha essa foto"), llm.Context{ImageData: image})
			Expect(apperr.IsCode(err, apperr.RequestCancelled)).To(BeTrue())
		})
	})

	Describe("routing", func() {
		It("sends image messages to claude without streaming", func() {
			seenCh := make(chan llm.ChatRequest, 1)
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenCh <- decodeRequest(r)
				writeJSON(w, "Que foto linda! Vi um bebê sorrindo.", "claude")
			}))

			gw := newGateway(nil)
			image := &llm.ImageData{Base64: "aGk=", MediaType: "image/jpeg"}
			resp, err := gw.Send(context.Background(), conversation("o que aparece na foto?"), llm.Context{ImageData: image})
			Expect(err).NotTo(HaveOccurred())

			var seen llm.ChatRequest
			Expect(seenCh).To(Receive(&seen))
			Expect(seen.Stream).To(BeFalse())
			Expect(seen.Provider).To(Equal(provider.Claude))
			Expect(seen.ImageData).NotTo(BeNil())
			Expect(resp.WasStreamed).To(BeFalse())
		})

		It("sends grounding requests to gemini with search enabled", func() {
			seenCh := make(chan llm.ChatRequest, 1)
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenCh <- decodeRequest(r)
				writeJSON(w, "Segundo as diretrizes mais recentes, o recomendado é acompanhamento.", "gemini")
			}))

			gw := newGateway(nil)
			_, err := gw.Send(context.Background(), conversation("quais as recomendações atuais de pré-natal?"), llm.Context{RequiresGrounding: true})
			Expect(err).NotTo(HaveOccurred())

			var seen llm.ChatRequest
			Expect(seenCh).To(Receive(&seen))
			Expect(seen.Stream).To(BeFalse())
			Expect(seen.Provider).To(Equal(provider.Gemini))
			Expect(seen.Grounding).To(BeTrue())
		})

		It("forwards the conversation ID on the wire", func() {
			seenCh := make(chan llm.ChatRequest, 1)
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenCh <- decodeRequest(r)
				writeJSON(w, "Entendi, pode continuar me contando.", "claude")
			}))

			gw := newGateway(nil)
			image := &llm.ImageData{Base64: "aGk=", MediaType: "image/png"}
			_, err := gw.Send(context.Background(), conversation("olha essa foto"), llm.Context{ImageData: image, ConversationID: "conv-42"})
			Expect(err).NotTo(HaveOccurred())

			var seen llm.ChatRequest
			Expect(seenCh).To(Receive(&seen))
			Expect(seen.ConversationID).To(Equal("conv-42"))
		})
	})

	Describe("response validation", func() {
		It("rejects bodies missing mandatory fields", func() {
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"content":"resposta sem usage nem provider"}`)
			}))

			gw := newGateway(nil)
			image := &llm.ImageData{Base64: "aGk=", MediaType: "image/png"}
			_, err := gw.Send(context.Background(), conversation("olha isso"), llm.Context{ImageData: image})
			Expect(apperr.IsCode(err, apperr.APIError)).To(BeTrue())
			typed, ok := apperr.As(err)
			Expect(ok).To(BeTrue())
			Expect(typed.UserMsg).To(Equal("Resposta inválida do servidor. Tente novamente."))
		})
	})

	Describe("post-processing", func() {
		It("appends the support disclaimer for sensitive topics", func() {
			gw := newGateway(nil)
			image := &llm.ImageData{Base64: "aGk=", MediaType: "image/png"}
			resp, err := gw.Send(context.Background(), conversation("estou com muita ansiedade hoje, olha meu diário"), llm.Context{ImageData: image})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(HaveSuffix("\n\n" + classify.SensitiveTopicDisclaimer))
		})

		It("appends at most three citations with a fallback title", func() {
			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{
					"content": "A recomendação atual é manter o acompanhamento.",
					"usage": {"promptTokens":5,"completionTokens":9,"totalTokens":14},
					"provider": "gemini",
					"grounding": {"citations": [
						{"title": "Ministério da Saúde", "uri": "https://example.com/1"},
						{"title": "", "uri": "https://example.com/2"},
						{"title": "OMS", "uri": "https://example.com/3"},
						{"title": "Quarta fonte ignorada", "uri": "https://example.com/4"}
					]}
				}`)
			}))

			gw := newGateway(nil)
			resp, err := gw.Send(context.Background(), conversation("quais as recomendações atuais?"), llm.Context{RequiresGrounding: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(ContainSubstring("📚 Fontes:\n"))
			Expect(resp.Content).To(ContainSubstring("1. Ministério da Saúde"))
			Expect(resp.Content).To(ContainSubstring("2. Fonte"))
			Expect(resp.Content).To(ContainSubstring("3. OMS"))
			Expect(resp.Content).NotTo(ContainSubstring("Quarta fonte ignorada"))
		})
	})

	Describe("turn completion", func() {
		It("persists both sides of the turn and publishes one event", func() {
			store := newRecordingStore()
			pub := &recordingPublisher{}
			gw := newGateway(func(c *gateway.Config) {
				c.History = store
				c.Events = pub
			})

			handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, "Tudo certo por aqui, pode perguntar.", "gemini")
			}))

			resp, err := gw.Send(context.Background(), conversation("tudo bem com você?"), llm.Context{ConversationID: "conv-7"})
			Expect(err).NotTo(HaveOccurred())

			msgs, err := store.Messages(context.Background(), "conv-7")
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0]).To(Equal(llm.UserMessage("tudo bem com você?")))
			Expect(msgs[1].Role).To(Equal(llm.RoleAssistant))
			Expect(msgs[1].Content).To(Equal(resp.Content))

			published := pub.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].ConversationID).To(Equal("conv-7"))
			Expect(published[0].Provider).To(Equal("gemini"))
			Expect(published[0].Usage.TotalTokens).To(Equal(30))
		})

		It("skips history when no conversation ID is set", func() {
			store := newRecordingStore()
			gw := newGateway(func(c *gateway.Config) {
				c.History = store
			})

			_, err := gw.Send(context.Background(), conversation("oi, sem conversa salva"), llm.Context{})
			Expect(err).NotTo(HaveOccurred())

			store.mu.Lock()
			defer store.mu.Unlock()
			Expect(store.appended).To(BeEmpty())
		})
	})
})
