package sqlite_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nossamaternidade/nathia/pkg/history/sqlite"
	"github.com/nossamaternidade/nathia/pkg/llm"
)

var _ = Describe("Store", func() {
	var (
		store *sqlite.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		var err error
		store, err = sqlite.New(":memory:")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("Append and Messages", func() {
		It("returns messages in insertion order", func() {
			Expect(store.Append(ctx, "conv-1", llm.UserMessage("primeira"))).To(Succeed())
			Expect(store.Append(ctx, "conv-1", llm.AssistantMessage("resposta"))).To(Succeed())
			Expect(store.Append(ctx, "conv-1", llm.UserMessage("segunda"))).To(Succeed())

			messages, err := store.Messages(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(Equal([]llm.Message{
				llm.UserMessage("primeira"),
				llm.AssistantMessage("resposta"),
				llm.UserMessage("segunda"),
			}))
		})

		It("isolates conversations", func() {
			Expect(store.Append(ctx, "conv-a", llm.UserMessage("a"))).To(Succeed())
			Expect(store.Append(ctx, "conv-b", llm.UserMessage("b"))).To(Succeed())

			messages, err := store.Messages(ctx, "conv-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Content).To(Equal("a"))
		})

		It("returns nothing for an unknown conversation", func() {
			messages, err := store.Messages(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(messages).To(BeEmpty())
		})

		It("rejects an empty conversation id", func() {
			err := store.Append(ctx, "", llm.UserMessage("x"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("New", func() {
		It("creates the database file on first use", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "history.db")

			s, err := sqlite.New(path)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			Expect(s.Append(ctx, "conv", llm.UserMessage("oi"))).To(Succeed())
			Expect(path).To(BeAnExistingFile())
		})
	})
})
