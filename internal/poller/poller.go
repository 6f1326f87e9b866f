// Package poller refreshes a client-side view of server state at a fixed cadence.
//
// Every fetch runs in its own goroutine and carries a sequence number. A result is applied only
// if no later fetch has been applied yet, so a slow response can never overwrite a newer one.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/raulk/clock"
	"go.uber.org/zap"

	"agriconnect/pkg/errors"
	"agriconnect/pkg/logger"
)

type Config struct {
	Name     string
	Interval time.Duration
	// Enabled is checked before every fetch and before applying its result. Nil means always.
	Enabled func() bool
	// Clock defaults to wall time.
	Clock clock.Clock
}

type Poller[T any] struct {
	cfg      Config
	fetch    func(context.Context) (T, error)
	onUpdate func(T)
	log      *zap.SugaredLogger

	trigger chan struct{}

	// updateMu serializes apply so onUpdate observes snapshots in sequence order.
	updateMu sync.Mutex

	mu       sync.Mutex
	issued   uint64
	applied  uint64
	snapshot T
	has      bool
	stale    bool
}

// New validates cfg and builds a poller. onUpdate may be nil.
func New[T any](cfg Config, fetch func(context.Context) (T, error), onUpdate func(T)) (*Poller[T], error) {
	if cfg.Interval <= 0 {
		return nil, errors.Validation("poll interval must be greater than zero", nil)
	}
	if fetch == nil {
		return nil, errors.Validation("poller needs a fetch function", nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Enabled == nil {
		cfg.Enabled = func() bool { return true }
	}
	if cfg.Name == "" {
		cfg.Name = "poller"
	}
	if onUpdate == nil {
		onUpdate = func(T) {}
	}

	return &Poller[T]{
		cfg:      cfg,
		fetch:    fetch,
		onUpdate: onUpdate,
		log:      logger.With("poller", cfg.Name),
		trigger:  make(chan struct{}, 1),
	}, nil
}

// Run polls until ctx is cancelled or Enabled reports false, returning nil in both cases.
// A non-retryable fetch error stops the poller and is returned. Run waits for every fetch it
// started before returning.
func (p *Poller[T]) Run(ctx context.Context) error {
	if !p.cfg.Enabled() {
		return nil
	}

	ticker := p.cfg.Clock.Ticker(p.cfg.Interval)
	defer ticker.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	fatal := make(chan error, 1)
	launch := func() {
		seq := p.nextSeq()
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := p.fetch(runCtx)
			p.apply(runCtx, seq, value, err, fatal)
		}()
	}

	launch()
	for {
		select {
		case <-ctx.Done():
			p.log.Debugw("stopping", "reason", ctx.Err())
			return nil
		case err := <-fatal:
			p.log.Errorw("stopping on non-retryable error", "error", err)
			return err
		case <-ticker.C:
			if !p.cfg.Enabled() {
				p.log.Debug("disabled, stopping")
				return nil
			}
			launch()
		case <-p.trigger:
			if !p.cfg.Enabled() {
				return nil
			}
			launch()
		}
	}
}

func (p *Poller[T]) nextSeq() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	return p.issued
}

func (p *Poller[T]) apply(ctx context.Context, seq uint64, value T, err error, fatal chan<- error) {
	if ctx.Err() != nil || !p.cfg.Enabled() {
		return
	}

	if err != nil {
		if errors.IsRetryable(err) {
			p.log.Warnw("refresh failed, keeping previous state", "seq", seq, "error", err)
			p.mu.Lock()
			if seq > p.applied {
				p.stale = true
			}
			p.mu.Unlock()
			return
		}
		select {
		case fatal <- err:
		default:
		}
		return
	}

	p.updateMu.Lock()
	defer p.updateMu.Unlock()

	p.mu.Lock()
	if seq <= p.applied {
		p.mu.Unlock()
		p.log.Debugw("discarding out-of-order result", "seq", seq, "applied", p.applied)
		return
	}
	p.applied = seq
	p.snapshot = value
	p.has = true
	p.stale = false
	p.mu.Unlock()

	p.onUpdate(value)
}

// Trigger requests an immediate refresh. Calls made while one is already queued are merged.
func (p *Poller[T]) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Snapshot returns the last applied value and whether any fetch has succeeded yet.
func (p *Poller[T]) Snapshot() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot, p.has
}

// Stale reports whether the latest refresh failed with a retryable error.
func (p *Poller[T]) Stale() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stale
}
