package gateway

import (
	"context"
	"sync"
)

// pendingRequest tracks the single in-flight request per gateway. A new
// send replaces the previous one by cancelling its context; nothing ever
// waits for an earlier request to finish.
type pendingRequest struct {
	mu       sync.Mutex
	cancelFn context.CancelFunc
	current  uint64
}

func newPendingRequest() *pendingRequest {
	return &pendingRequest{}
}

// begin cancels any in-flight request and installs a new cancellable
// context derived from ctx. The returned release func clears the slot if
// it still belongs to this request.
func (p *pendingRequest) begin(ctx context.Context) (context.Context, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelFn != nil {
		p.cancelFn()
	}

	sctx, cancel := context.WithCancel(ctx)
	p.cancelFn = cancel
	p.current++
	id := p.current

	release := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.current == id {
			p.cancelFn = nil
		}
		cancel()
	}
	return sctx, release
}

// cancel aborts the in-flight request, if any.
func (p *pendingRequest) cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelFn != nil {
		p.cancelFn()
	}
}
