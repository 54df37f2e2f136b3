package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/catalog-s3/internal/metrics"
)

const (
	defaultPageSize       = 1000
	defaultRequestTimeout = 30 * time.Second
)

type options struct {
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	pageSize int
}

// Option customizes a driver at construction time.
type Option func(*options)

// WithLogger sets the logger used for warnings and per-object failures.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records every backend call on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithPageSize bounds the number of keys returned by one ListPage call.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 && n <= defaultPageSize {
			o.pageSize = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   zerolog.Nop(),
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func withRequestTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
