package pipeline

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Poller defaults. The batch stays small so a slow LLM call cannot starve the
// next polling cycle for long.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultBatchSize    = 5
	DefaultRecordDelay  = 2 * time.Second
)

// Poller periodically sweeps the store for assessments whose email has not
// gone out yet and feeds them through the processor.
type Poller struct {
	processor *Processor

	interval    time.Duration
	batchSize   int
	recordDelay time.Duration

	stop  chan struct{}
	done  chan struct{}
	alive atomic.Bool
}

// NewPoller creates a poller. Zero values select the defaults.
func NewPoller(processor *Processor, interval time.Duration, batchSize int, recordDelay time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if recordDelay < 0 {
		recordDelay = DefaultRecordDelay
	}
	return &Poller{
		processor:   processor,
		interval:    interval,
		batchSize:   batchSize,
		recordDelay: recordDelay,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run loops until Stop is called or the context is cancelled. It is meant to
// run in its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	p.alive.Store(true)
	defer p.alive.Store(false)
	defer close(p.done)

	log.Printf("[POLLER] Started (interval %s, batch size %d)", p.interval, p.batchSize)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			log.Printf("[POLLER] Stopped")
			return
		case <-ctx.Done():
			log.Printf("[POLLER] Context cancelled")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

// sweep processes one batch of unsent assessments, oldest first. A stop
// request is honored between records, never mid-stage.
func (p *Poller) sweep(ctx context.Context) {
	unsent, err := p.processor.store.ListUnsent(ctx, p.batchSize)
	if err != nil {
		log.Printf("[POLLER] Failed to list unsent assessments: %v", err)
		return
	}
	if len(unsent) == 0 {
		return
	}

	log.Printf("[POLLER] Sweeping %d unsent assessments", len(unsent))
	for i := range unsent {
		if p.stopped() || ctx.Err() != nil {
			log.Printf("[POLLER] Sweep interrupted, %d records left for next cycle", len(unsent)-i)
			return
		}

		a := &unsent[i]
		res := p.processor.ProcessOne(ctx, a.ID)
		if res.Outcome == Failed {
			log.Printf("[POLLER] Record %s (%s) failed at stage %q: %v", a.ID, a.CompanyName, res.Stage, res.Err)
		}

		// Brief pause between records keeps bursty LLM usage in check.
		if i < len(unsent)-1 && p.recordDelay > 0 {
			select {
			case <-time.After(p.recordDelay):
			case <-p.stop:
			case <-ctx.Done():
			}
		}
	}
}

func (p *Poller) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

// Stop signals the poller to exit. It does not cancel an in-flight stage
// call; the current record finishes before the loop winds down.
func (p *Poller) Stop() {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
}

// Alive reports whether the polling goroutine is currently running.
func (p *Poller) Alive() bool {
	return p.alive.Load()
}

// Done is closed once the polling goroutine has fully exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}
