package events_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nossamaternidade/nathia/pkg/events"
	"github.com/nossamaternidade/nathia/pkg/events/nop"
	"github.com/nossamaternidade/nathia/pkg/llm"
)

var _ = Describe("NewTurnCompleted", func() {
	It("builds a v1 event from a response", func() {
		resp := &llm.Response{
			Content:     "tudo bem!",
			Usage:       llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			Provider:    "gemini",
			Latency:     1200 * time.Millisecond,
			WasStreamed: true,
		}

		event := events.NewTurnCompleted("conv-1", resp)

		Expect(event.SchemaVersion).To(Equal(events.SchemaVersionV1))
		Expect(event.EventType).To(Equal(events.EventTypeTurnCompleted))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.EmittedAt).To(BeTemporally("~", time.Now(), time.Minute))
		Expect(event.ConversationID).To(Equal("conv-1"))
		Expect(event.Provider).To(Equal("gemini"))
		Expect(event.Streamed).To(BeTrue())
		Expect(event.Latency).To(Equal(1200 * time.Millisecond))
		Expect(event.Usage.TotalTokens).To(Equal(15))
	})

	It("assigns a fresh event ID per turn", func() {
		resp := &llm.Response{Provider: "claude"}
		first := events.NewTurnCompleted("conv", resp)
		second := events.NewTurnCompleted("conv", resp)
		Expect(first.EventID).NotTo(Equal(second.EventID))
	})

	It("marks blocked turns", func() {
		resp := &llm.Response{Provider: "local", Blocked: true}
		event := events.NewTurnCompleted("", resp)
		Expect(event.Blocked).To(BeTrue())
		Expect(event.ConversationID).To(BeEmpty())
	})
})

var _ = Describe("nop.Publisher", func() {
	It("accepts events and does nothing", func() {
		p := nop.NewPublisher()
		event := events.NewTurnCompleted("conv", &llm.Response{Provider: "gemini"})
		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(p.Close()).To(Succeed())
	})

	It("rejects nil events", func() {
		p := nop.NewPublisher()
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(events.ErrNilTurnEvent))
	})
})
