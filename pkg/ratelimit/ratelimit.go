// Package ratelimit implements the windowed token-bucket limiter that caps
// outbound exchange calls per endpoint class. Tasks queue without bound and
// are released in batches of at most requestsPerWindow per window, so callers
// stall under load instead of exceeding the exchange's quota.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter releases at most Requests task starts per Window.
type Limiter struct {
	mu          sync.Mutex
	requests    int
	window      time.Duration
	windowStart time.Time
	inWindow    int
	queue       []chan struct{}
	timerSet    bool

	now func() time.Time
}

// New creates a limiter allowing requestsPerWindow starts per window.
func New(requestsPerWindow int, window time.Duration) *Limiter {
	if requestsPerWindow <= 0 {
		requestsPerWindow = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{
		requests: requestsPerWindow,
		window:   window,
		now:      time.Now,
	}
}

// Acquire blocks until a slot in some window is granted or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.inWindow = 0
	}
	if len(l.queue) == 0 && l.inWindow < l.requests {
		l.inWindow++
		l.mu.Unlock()
		return nil
	}

	grant := make(chan struct{})
	l.queue = append(l.queue, grant)
	l.scheduleDrainLocked()
	l.mu.Unlock()

	select {
	case <-grant:
		return nil
	case <-ctx.Done():
		// The grant may have raced with cancellation; prefer the grant so
		// the consumed slot is not wasted.
		select {
		case <-grant:
			return nil
		default:
		}
		l.removeWaiter(grant)
		return ctx.Err()
	}
}

// Submit runs task after a slot is granted. Task failures reject only the
// caller; they neither block the queue nor consume extra quota.
func (l *Limiter) Submit(ctx context.Context, task func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	return task()
}

// Go schedules task on its own goroutine and returns a channel that receives
// the task's result once it completes.
func (l *Limiter) Go(ctx context.Context, task func() error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- l.Submit(ctx, task)
	}()
	return done
}

// Pending returns the number of queued waiters (for introspection/tests).
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Limiter) scheduleDrainLocked() {
	if l.timerSet {
		return
	}
	l.timerSet = true
	delay := l.windowStart.Add(l.window).Sub(l.now())
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, l.drain)
}

func (l *Limiter) drain() {
	l.mu.Lock()
	l.timerSet = false
	l.windowStart = l.now()

	n := l.requests
	if n > len(l.queue) {
		n = len(l.queue)
	}
	released := l.queue[:n:n]
	l.queue = append([]chan struct{}(nil), l.queue[n:]...)
	l.inWindow = n
	if len(l.queue) > 0 {
		l.scheduleDrainLocked()
	}
	l.mu.Unlock()

	for _, grant := range released {
		close(grant)
	}
}

func (l *Limiter) removeWaiter(grant chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, ch := range l.queue {
		if ch == grant {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return
		}
	}
}

// Classes groups one limiter per exchange endpoint class.
type Classes struct {
	MarketReads *Limiter
	TradeReads  *Limiter
	OrderWrites *Limiter
}

// ClassConfig holds the quota for one endpoint class.
type ClassConfig struct {
	RequestsPerWindow int
	Window            time.Duration
}

// ClassesConfig configures all three endpoint classes.
type ClassesConfig struct {
	MarketReads ClassConfig
	TradeReads  ClassConfig
	OrderWrites ClassConfig
}

// DefaultClassesConfig mirrors the exchange's published request quotas.
func DefaultClassesConfig() ClassesConfig {
	return ClassesConfig{
		MarketReads: ClassConfig{RequestsPerWindow: 50, Window: 10 * time.Second},
		TradeReads:  ClassConfig{RequestsPerWindow: 30, Window: 10 * time.Second},
		OrderWrites: ClassConfig{RequestsPerWindow: 10, Window: 10 * time.Second},
	}
}

// NewClasses builds the per-class limiters.
func NewClasses(cfg ClassesConfig) *Classes {
	return &Classes{
		MarketReads: New(cfg.MarketReads.RequestsPerWindow, cfg.MarketReads.Window),
		TradeReads:  New(cfg.TradeReads.RequestsPerWindow, cfg.TradeReads.Window),
		OrderWrites: New(cfg.OrderWrites.RequestsPerWindow, cfg.OrderWrites.Window),
	}
}
