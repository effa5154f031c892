package retry

import (
	"context"
	"errors"
	"time"

	config "github.com/tigerroll/swell/pkg/batch/core/config"
	"github.com/tigerroll/swell/pkg/batch/support/util/exception"
)

// RetryPolicy decides whether a record-processing error consumes retry budget
// and how long to wait before the next attempt.
type RetryPolicy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// BackoffInterval returns the waiting time before the given retry
	// attempt (starting from 1).
	BackoffInterval(attempt int) time.Duration
	// MaxRetries returns the per-record retry budget. Zero means the first
	// failure is final.
	MaxRetries() int
}

// DefaultRetryPolicyFactory creates RetryPolicy instances from engine pacing
// configuration and a job definition's retry budget.
type DefaultRetryPolicyFactory struct {
	pacing config.RetryConfig
}

// NewDefaultRetryPolicyFactory creates a new DefaultRetryPolicyFactory using
// the engine's retry pacing configuration.
func NewDefaultRetryPolicyFactory(cfg *config.Config) *DefaultRetryPolicyFactory {
	return &DefaultRetryPolicyFactory{pacing: cfg.Swell.Scheduler.Retry}
}

// Create creates a RetryPolicy with the given per-record retry budget.
// retryableExceptions lists error type names (see exception.RegisterErrorType)
// that are retryable in addition to errors flagged retryable themselves.
func (f *DefaultRetryPolicyFactory) Create(maxRetries int, retryableExceptions []string) RetryPolicy {
	return &defaultRetryPolicy{
		maxRetries:          maxRetries,
		pacing:              f.pacing,
		retryableExceptions: retryableExceptions,
	}
}

// defaultRetryPolicy applies exponential backoff bounded by the configured
// maximum interval.
type defaultRetryPolicy struct {
	maxRetries          int
	pacing              config.RetryConfig
	retryableExceptions []string
}

// MaxRetries returns the per-record retry budget.
func (p *defaultRetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// ShouldRetry determines if an error is retryable. A BatchError decides via
// its IsRetryable flag; other errors are treated as transient and consume
// retry budget, except cancellation. The retryableExceptions list force-marks
// additional registered error types retryable.
func (p *defaultRetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}

	var be *exception.BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	return true
}

// BackoffInterval returns the exponential backoff interval for the given
// attempt number, clamped to the configured maximum.
func (p *defaultRetryPolicy) BackoffInterval(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	interval := float64(p.pacing.InitialIntervalMillis)
	factor := p.pacing.Factor
	if factor <= 1 {
		factor = 1
	}
	for i := 1; i < attempt; i++ {
		interval *= factor
		if p.pacing.MaxIntervalMillis > 0 && interval >= float64(p.pacing.MaxIntervalMillis) {
			interval = float64(p.pacing.MaxIntervalMillis)
			break
		}
	}
	return time.Duration(interval) * time.Millisecond
}

// Verify interfaces
var _ RetryPolicy = (*defaultRetryPolicy)(nil)
