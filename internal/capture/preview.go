package capture

import (
	"context"
	"sync"
	"time"
)

// PreviewInterval is the minimum spacing between encoded preview frames.
const PreviewInterval = 66 * time.Millisecond

// Preview holds the most recent JPEG-encoded camera frame for viewers.
type Preview struct {
	mu    sync.Mutex
	frame []byte
	seq   uint64
	ready chan struct{}
}

// NewPreview returns an empty Preview.
func NewPreview() *Preview {
	return &Preview{ready: make(chan struct{})}
}

// Put replaces the current frame and wakes every waiting viewer.
func (p *Preview) Put(jpeg []byte) {
	p.mu.Lock()
	p.frame = jpeg
	p.seq++
	close(p.ready)
	p.ready = make(chan struct{})
	p.mu.Unlock()
}

// Next blocks until a frame newer than seq is available and returns it with
// its sequence number. Pass 0 to get the current frame if there is one.
func (p *Preview) Next(ctx context.Context, seq uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.seq > seq {
			frame, cur := p.frame, p.seq
			p.mu.Unlock()
			return frame, cur, nil
		}
		ready := p.ready
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, seq, ctx.Err()
		case <-ready:
		}
	}
}
