// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// frame reader for the NathIA gateway client. It consumes the backend's
// newline-delimited "data: <json>" frames from a chunked response body,
// decoding incrementally as bytes arrive.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities, nor the full event/id/retry field grammar: the backend's
// wire contract is data-only frames terminated by "data: [DONE]".
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"io"
	"strings"
)

// Done is the end-of-stream sentinel payload. It carries no data.
const Done = "[DONE]"

const dataPrefix = "data: "

// readChunk is the per-read buffer size. Frames may span reads; the
// rolling buffer below reassembles them.
const readChunk = 4096

// Reader incrementally extracts "data:" payloads from a byte stream.
//
// The correctness invariant of the parser: after splitting the rolling
// buffer on newlines, the last (possibly incomplete) line is always
// re-buffered rather than processed, since a chunk boundary may split a
// line mid-way. The output is therefore identical whether the stream
// arrives in one read or split at arbitrary byte boundaries.
type Reader struct {
	src io.Reader

	// buffer holds the incomplete trailing line between reads.
	buffer string

	// pending are complete payloads not yet handed to the caller.
	pending []string

	eof bool
}

// NewReader returns a Reader over src, typically a streaming HTTP
// response body.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Next returns the next "data:" payload with the prefix stripped. The
// Done sentinel is returned like any other payload; interpreting it is
// the caller's concern. Lines without the data prefix (keep-alive pings,
// comments, blank lines) are skipped.
//
// After the source is exhausted, any residual buffered partial line is
// given one final parse attempt — a chunk boundary may occur exactly at
// end-of-stream. Next returns io.EOF once no payloads remain.
func (r *Reader) Next() (string, error) {
	for {
		if len(r.pending) > 0 {
			payload := r.pending[0]
			r.pending = r.pending[1:]
			return payload, nil
		}

		if r.eof {
			return "", io.EOF
		}

		if err := r.fill(); err != nil {
			return "", err
		}
	}
}

// fill performs one read from the source and slices complete lines off
// the rolling buffer.
func (r *Reader) fill() error {
	buf := make([]byte, readChunk)
	n, err := r.src.Read(buf)

	if n > 0 {
		r.buffer += string(buf[:n])

		lines := strings.Split(r.buffer, "\n")
		// Keep the incomplete trailing line in the buffer.
		r.buffer = lines[len(lines)-1]

		for _, line := range lines[:len(lines)-1] {
			if payload, ok := cutData(line); ok {
				r.pending = append(r.pending, payload)
			}
		}
	}

	if err != nil {
		if err != io.EOF {
			return err
		}
		r.eof = true
		// Final parse attempt for the residual partial line.
		if payload, ok := cutData(r.buffer); ok {
			r.pending = append(r.pending, payload)
		}
		r.buffer = ""
	}

	return nil
}

// cutData extracts the payload of a "data: " line.
func cutData(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	return line[len(dataPrefix):], true
}
