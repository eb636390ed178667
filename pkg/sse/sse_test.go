package sse_test

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nossamaternidade/nathia/pkg/sse"
)

// chunkReader yields the source n bytes at a time, forcing frame
// reassembly across read boundaries.
type chunkReader struct {
	data string
	pos  int
	size int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.size
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

// drain collects every payload until EOF.
func drain(r *sse.Reader) ([]string, error) {
	var payloads []string
	for {
		payload, err := r.Next()
		if err == io.EOF {
			return payloads, nil
		}
		if err != nil {
			return payloads, err
		}
		payloads = append(payloads, payload)
	}
}

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		It("parses a single data frame", func() {
			r := sse.NewReader(strings.NewReader("data: {\"chunk\":\"oi\"}\n"))

			payload, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(Equal("{\"chunk\":\"oi\"}"))

			_, err = r.Next()
			Expect(err).To(Equal(io.EOF))
		})

		It("parses multiple frames in order", func() {
			input := "data: first\ndata: second\ndata: third\n"
			payloads, err := drain(sse.NewReader(strings.NewReader(input)))
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"first", "second", "third"}))
		})

		It("returns the done sentinel like any payload", func() {
			input := "data: {\"chunk\":\"x\"}\ndata: [DONE]\n"
			payloads, err := drain(sse.NewReader(strings.NewReader(input)))
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(HaveLen(2))
			Expect(payloads[1]).To(Equal(sse.Done))
		})

		It("skips blank lines, comments, and keep-alive pings", func() {
			input := ": keep-alive\n\n\ndata: real\n:\n"
			payloads, err := drain(sse.NewReader(strings.NewReader(input)))
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"real"}))
		})

		It("strips carriage returns from CRLF streams", func() {
			input := "data: one\r\ndata: two\r\n"
			payloads, err := drain(sse.NewReader(strings.NewReader(input)))
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"one", "two"}))
		})

		It("parses a residual frame without a trailing newline", func() {
			input := "data: complete\ndata: residual"
			payloads, err := drain(sse.NewReader(strings.NewReader(input)))
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"complete", "residual"}))
		})

		It("propagates source read errors", func() {
			r := sse.NewReader(failReader{})
			_, err := r.Next()
			Expect(err).To(MatchError(errBrokenPipe))
		})
	})

	Describe("chunk boundary invariance", func() {
		input := "data: {\"chunk\":\"Olá, \"}\n" +
			"data: {\"chunk\":\"tudo bem?\"}\n" +
			": ping\n" +
			"data: {\"usage\":{\"totalTokens\":12}}\n" +
			"data: [DONE]\n"

		expected := []string{
			"{\"chunk\":\"Olá, \"}",
			"{\"chunk\":\"tudo bem?\"}",
			"{\"usage\":{\"totalTokens\":12}}",
			sse.Done,
		}

		It("produces identical output for every chunk size", func() {
			for size := 1; size <= len(input); size++ {
				payloads, err := drain(sse.NewReader(&chunkReader{data: input, size: size}))
				Expect(err).NotTo(HaveOccurred())
				Expect(payloads).To(Equal(expected), "chunk size %d", size)
			}
		})

		It("reassembles a frame split exactly inside the data prefix", func() {
			payloads, err := drain(sse.NewReader(&chunkReader{data: "dat" + "a: split\n", size: 3}))
			Expect(err).NotTo(HaveOccurred())
			Expect(payloads).To(Equal([]string{"split"}))
		})
	})
})

var errBrokenPipe = errors.New("broken pipe")

// failReader fails on the first read.
type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, errBrokenPipe }
