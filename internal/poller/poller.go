// Package poller drives a submitted job to a terminal outcome.
//
// Each Poll call owns its own loop and timers, so independent claims poll
// concurrently without blocking one another. The loop has three exits
// besides success:
//   - Failed: the relay reported the job Failed; polling stops at once.
//   - Timeout: MaxAttempts counted attempts (or MaxWait) passed without
//     reaching the target status.
//   - Cancelled: the caller's context ended during a request or a sleep.
//
// A 503 from the relay is transient: the loop backs off and retries
// without spending an attempt. MaxWait bounds that retry loop.
package poller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/zkclaim/internal/metrics"
	"github.com/roach88/zkclaim/internal/relay"
)

// StatusFetcher reads the current status of a job.
type StatusFetcher interface {
	JobStatus(ctx context.Context, jobID string) (*relay.JobStatus, error)
}

// Config bounds the poll loop.
type Config struct {
	MaxAttempts         int
	IntervalDirect      time.Duration
	IntervalAggregating time.Duration
	TransientBackoff    time.Duration

	// MaxWait caps total wall time including 503 retries. Zero disables it.
	MaxWait time.Duration

	// Aggregate selects Aggregated as the default target instead of
	// Finalized.
	Aggregate bool
}

// DefaultConfig mirrors the relay's documented cadence.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:         30,
		IntervalDirect:      5 * time.Second,
		IntervalAggregating: 20 * time.Second,
		TransientBackoff:    5 * time.Second,
		MaxWait:             15 * time.Minute,
	}
}

// Job identifies a submitted proof awaiting a terminal status.
type Job struct {
	ID          string
	Role        string
	SubmittedAt time.Time

	// Target overrides the status that counts as success.
	Target relay.JobState
}

// OutcomeKind classifies how polling ended.
type OutcomeKind string

const (
	Success   OutcomeKind = "success"
	Failed    OutcomeKind = "failed"
	Timeout   OutcomeKind = "timeout"
	Cancelled OutcomeKind = "cancelled"
)

// Outcome is the terminal result of polling one job.
type Outcome struct {
	Kind  OutcomeKind
	JobID string

	// Status is the last observed job status; set on Success and Failed.
	Status *relay.JobStatus

	// Detail is the relay's body for Failed.
	Detail string

	AttemptsMade int
	Elapsed      time.Duration

	// Cause is the context error for Cancelled.
	Cause error
}

// Err maps a non-success outcome to its typed error. Success returns nil.
func (o Outcome) Err() error {
	switch o.Kind {
	case Success:
		return nil
	case Failed:
		return &FailureError{JobID: o.JobID, Detail: o.Detail}
	case Timeout:
		return &TimeoutError{JobID: o.JobID, AttemptsMade: o.AttemptsMade, Elapsed: o.Elapsed}
	case Cancelled:
		return &CancelledError{JobID: o.JobID, Cause: o.Cause}
	}
	return fmt.Errorf("job %s: unknown outcome %q", o.JobID, o.Kind)
}

// Poller polls job status until a terminal outcome.
type Poller struct {
	status  StatusFetcher
	clock   Clock
	cfg     Config
	metrics *metrics.Metrics
	log     *zap.Logger
}

// Option customises a Poller.
type Option func(*Poller)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithMetrics records attempts and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithLogger sets the poller logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a Poller. Non-positive config values fall back to
// DefaultConfig.
func New(status StatusFetcher, cfg Config, opts ...Option) *Poller {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.IntervalDirect <= 0 {
		cfg.IntervalDirect = def.IntervalDirect
	}
	if cfg.IntervalAggregating <= 0 {
		cfg.IntervalAggregating = def.IntervalAggregating
	}
	if cfg.TransientBackoff <= 0 {
		cfg.TransientBackoff = def.TransientBackoff
	}
	p := &Poller{
		status: status,
		clock:  SystemClock{},
		cfg:    cfg,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Target returns the status that ends job successfully.
func (p *Poller) Target(job Job) relay.JobState {
	if job.Target != "" {
		return job.Target
	}
	if p.cfg.Aggregate {
		return relay.StateAggregated
	}
	return relay.StateFinalized
}

// interval is the sleep between counted attempts for target.
func (p *Poller) interval(target relay.JobState) time.Duration {
	if target == relay.StateAggregated {
		return p.cfg.IntervalAggregating
	}
	return p.cfg.IntervalDirect
}

// Poll queries job status until the target status, Failed, the attempt
// budget, MaxWait or ctx cancellation ends it. The returned error is
// non-nil only for non-retryable request failures; every other ending is
// an Outcome.
func (p *Poller) Poll(ctx context.Context, job Job) (Outcome, error) {
	target := p.Target(job)
	interval := p.interval(target)
	start := p.clock.Now()
	log := p.log.With(zap.String("job", job.ID), zap.String("role", job.Role))

	attempts := 0
	finish := func(o Outcome) Outcome {
		o.JobID = job.ID
		o.AttemptsMade = attempts
		o.Elapsed = p.clock.Now().Sub(start)
		p.metrics.PollOutcome(job.Role, string(o.Kind))
		log.Info("poll finished",
			zap.String("outcome", string(o.Kind)),
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", o.Elapsed))
		return o
	}
	cancelled := func() Outcome {
		return finish(Outcome{Kind: Cancelled, Cause: ctx.Err()})
	}

	for attempts < p.cfg.MaxAttempts {
		if ctx.Err() != nil {
			return cancelled(), nil
		}
		if p.cfg.MaxWait > 0 && p.clock.Now().Sub(start) >= p.cfg.MaxWait {
			return finish(Outcome{Kind: Timeout}), nil
		}

		st, err := p.status.JobStatus(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return cancelled(), nil
			}
			if relay.IsRetryable(err) {
				p.metrics.TransientRetry(job.Role)
				log.Warn("relay unavailable, retrying", zap.Duration("backoff", p.cfg.TransientBackoff))
				if p.sleep(ctx, p.cfg.TransientBackoff) != nil {
					return cancelled(), nil
				}
				continue
			}
			return Outcome{}, fmt.Errorf("poll job %s: %w", job.ID, err)
		}

		attempts++
		p.metrics.PollAttempt(job.Role)
		log.Debug("job status",
			zap.Int("attempt", attempts),
			zap.String("status", string(st.Status)),
			zap.String("target", string(target)))

		switch st.Status {
		case target:
			return finish(Outcome{Kind: Success, Status: st}), nil
		case relay.StateFailed:
			return finish(Outcome{Kind: Failed, Status: st, Detail: string(st.Raw)}), nil
		}

		if attempts >= p.cfg.MaxAttempts {
			break
		}
		if p.sleep(ctx, interval) != nil {
			return cancelled(), nil
		}
	}

	return finish(Outcome{Kind: Timeout}), nil
}

// sleep waits d on the injected clock or until ctx ends.
func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}
