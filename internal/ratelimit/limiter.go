// Package ratelimit paces outgoing fixture requests per backend host.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the pacing configuration.
type Config struct {
	RPS             float64       // Requests per second per host
	Burst           int           // Burst size per host
	CleanupInterval time.Duration // How often to drop idle limiters
}

// DefaultConfig provides defaults suitable for a local dev backend.
var DefaultConfig = Config{
	RPS:             20,
	Burst:           5,
	CleanupInterval: 10 * time.Minute,
}

// limiterEntry holds a rate limiter and tracks its last usage.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Pacer manages one token bucket per host.
type Pacer struct {
	limiters map[string]*limiterEntry
	mu       sync.RWMutex
	config   Config

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPacer creates a pacer with the given configuration.
// It starts a background goroutine for cleanup; call Stop to end it.
func NewPacer(config Config) *Pacer {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig.CleanupInterval
	}
	p := &Pacer{
		limiters: make(map[string]*limiterEntry),
		config:   config,
		stopCh:   make(chan struct{}),
	}

	p.wg.Add(1)
	go p.cleanupLoop()

	return p
}

// Wait blocks until a request to host may proceed or ctx is done.
func (p *Pacer) Wait(ctx context.Context, host string) error {
	return p.GetLimiter(host).Wait(ctx)
}

// GetLimiter returns the limiter for host, creating one if necessary.
func (p *Pacer) GetLimiter(host string) *rate.Limiter {
	p.mu.RLock()
	entry, exists := p.limiters[host]
	p.mu.RUnlock()
	if exists {
		p.touch(entry)
		return entry.limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists := p.limiters[host]; exists {
		entry.lastUsed = time.Now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(p.config.RPS), p.config.Burst)
	p.limiters[host] = &limiterEntry{limiter: limiter, lastUsed: time.Now()}
	return limiter
}

func (p *Pacer) touch(entry *limiterEntry) {
	p.mu.Lock()
	entry.lastUsed = time.Now()
	p.mu.Unlock()
}

// Len returns the number of hosts currently tracked.
func (p *Pacer) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.limiters)
}

// Cleanup removes limiters that have been idle for longer than the cleanup interval.
func (p *Pacer) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-p.config.CleanupInterval)
	for host, entry := range p.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(p.limiters, host)
		}
	}
}

func (p *Pacer) cleanupLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Cleanup()
		case <-p.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish. It is safe to
// call more than once.
func (p *Pacer) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}
