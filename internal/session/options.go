package session

import (
	"log/slog"
	"time"

	"pointer/internal/platform/metrics"
)

type options struct {
	logger       *slog.Logger
	metrics      *metrics.Metrics
	mountTimeout time.Duration
	release      func(browserID string)
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMountTimeout bounds the initial refresh a Registry runs on first use.
func WithMountTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.mountTimeout = d
		}
	}
}

// WithRelease is called by a Registry after it unmounts an evicted Provider.
func WithRelease(fn func(browserID string)) Option {
	return func(o *options) { o.release = fn }
}

func newOptions(opts []Option) options {
	o := options{
		logger:       slog.Default(),
		mountTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
