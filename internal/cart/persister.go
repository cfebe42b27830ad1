package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const saveTimeout = 5 * time.Second

// persister writes cart snapshots to the store from a single background
// goroutine. It keeps only the latest unsaved snapshot: intermediate states
// between two writes are coalesced away, which is safe because every snapshot
// is a full overwrite of the same storage slot.
//
// Write failures are logged and swallowed. The in-memory cart stays
// authoritative; a lost write only costs persistence across a restart.
type persister struct {
	store Store
	lg    *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending *Cart
	gen     uint64 // generation of the latest enqueued snapshot
	done    uint64 // generation of the latest completed save attempt
	closed  bool
}

func newPersister(store Store, lg *zap.Logger) *persister {
	p := &persister{store: store, lg: lg}
	p.cond = sync.NewCond(&p.mu)
	go p.run()
	return p
}

// enqueue replaces any pending snapshot with the given one. Never blocks.
func (p *persister) enqueue(c Cart) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pending = &c
	p.gen++
	p.cond.Broadcast()
}

func (p *persister) run() {
	for {
		p.mu.Lock()
		for p.pending == nil && !p.closed {
			p.cond.Wait()
		}
		if p.pending == nil && p.closed {
			p.mu.Unlock()
			return
		}
		snap := *p.pending
		gen := p.gen
		p.pending = nil
		p.mu.Unlock()

		// Detached from any request context: the caller already has its
		// result and must not wait on storage.
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := p.store.Save(ctx, snap); err != nil {
			p.lg.Warn("Cart snapshot save failed, continuing in-memory",
				zap.Error(err),
				zap.Int("items", len(snap.Items)),
			)
		}
		cancel()

		p.mu.Lock()
		if gen > p.done {
			p.done = gen
		}
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// flush waits until every snapshot enqueued before the call has been written
// (or its write failed and was logged).
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.gen
	p.mu.Unlock()

	return p.waitFor(ctx, target)
}

// close flushes and then stops the background goroutine. Snapshots enqueued
// after close are dropped.
func (p *persister) close(ctx context.Context) error {
	p.mu.Lock()
	target := p.gen
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	return p.waitFor(ctx, target)
}

func (p *persister) waitFor(ctx context.Context, target uint64) error {
	// Wake the cond waiter when the context expires; sync.Cond has no
	// context-aware wait.
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.done < target {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.cond.Wait()
	}
	return nil
}
