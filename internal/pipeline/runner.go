package pipeline

import (
	"context"
	"log"
	"sync"
	"time"
)

// Status is a snapshot of the background loop's lifecycle state. Running
// tracks the requested state, Alive the goroutine's actual state; the two
// diverge briefly while a stop drains.
type Status struct {
	Running bool `json:"running"`
	Alive   bool `json:"alive"`
}

// Runner owns the single background poller instance. Start is a no-op while
// a poller is already running, which keeps redundant start requests from
// spawning duplicate loops.
type Runner struct {
	mu      sync.Mutex
	running bool
	poller  *Poller

	newPoller func() *Poller
}

// NewRunner creates a Runner that builds pollers with the given settings.
func NewRunner(processor *Processor, interval time.Duration, batchSize int, recordDelay time.Duration) *Runner {
	return &Runner{
		newPoller: func() *Poller {
			return NewPoller(processor, interval, batchSize, recordDelay)
		},
	}
}

// Start launches the background poller unless one is already running.
// It returns true when a new poller was started.
func (r *Runner) Start(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		log.Printf("[RUNNER] Poller already running, start ignored")
		return false
	}

	r.poller = r.newPoller()
	r.running = true
	go r.poller.Run(ctx)
	return true
}

// Stop signals the running poller to exit. It does not wait for in-flight
// work; it returns true when a running poller was signalled.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || r.poller == nil {
		return false
	}

	r.poller.Stop()
	r.running = false
	return true
}

// Status reports the runner's current state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := Status{Running: r.running}
	if r.poller != nil {
		status.Alive = r.poller.Alive()
	}
	return status
}
