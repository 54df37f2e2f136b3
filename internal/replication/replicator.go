// Package replication copies every object of one bucket into another with
// server-side copies, accounting for each object individually.
package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/metrics"
	"github.com/andresuchdata/catalog-s3/internal/storage"
)

// Replicator pages through a source bucket and copies each key to a target.
// A failed copy is recorded and the run continues; a failed listing aborts it.
type Replicator struct {
	copier  storage.BucketCopier
	workers int
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Replicator.
type Option func(*Replicator)

// WithWorkers bounds the number of copies in flight within a page. One
// worker copies strictly in listing order.
func WithWorkers(n int) Option {
	return func(r *Replicator) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Replicator) { r.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Replicator) { r.metrics = m }
}

// New creates a Replicator over copier.
func New(copier storage.BucketCopier, opts ...Option) *Replicator {
	r := &Replicator{
		copier:  copier,
		workers: 1,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run copies every object of source into target under the same key.
//
// Configuration problems fail with storage.ErrConfiguration before anything
// is listed. A listing failure returns storage.ErrListing and no report.
// When ctx ends, in-flight copies are awaited and the partial report is
// returned along with an error wrapping ctx.Err().
func (r *Replicator) Run(ctx context.Context, source, target string) (*domain.ReplicationReport, error) {
	if err := validatePair(source, target); err != nil {
		r.metrics.ReplicationFinished(domain.BackupFailed, 0)
		return nil, err
	}

	start := time.Now()
	log := r.logger.With().Str("source", source).Str("target", target).Logger()
	log.Info().Int("workers", r.workers).Msg("starting bucket replication")

	col := &collector{}
	sem := semaphore.NewWeighted(int64(r.workers))
	token := ""
	seen := map[string]struct{}{}
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return r.interrupted(log, col, start, err)
		}

		page, err := r.copier.ListPage(ctx, source, token)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.interrupted(log, col, start, ctxErr)
			}
			r.metrics.ReplicationFinished(domain.BackupFailed, time.Since(start))
			log.Error().Err(err).Str("code", storage.CodeOf(err)).Msg("failed to list source bucket")
			return nil, asListingError(source, err)
		}
		if page == nil {
			page = &storage.ObjectPage{}
		}
		pages++

		dispatchErr := r.copyPage(ctx, log, sem, col, source, target, page.Keys)
		if dispatchErr != nil {
			return r.interrupted(log, col, start, dispatchErr)
		}

		log.Debug().
			Int("page", pages).
			Int("keys", len(page.Keys)).
			Int("processed", col.processed()).
			Msg("replicated page")

		if page.NextToken == "" {
			break
		}
		if _, dup := seen[page.NextToken]; dup || page.NextToken == token {
			r.metrics.ReplicationFinished(domain.BackupFailed, time.Since(start))
			return nil, asListingError(source, fmt.Errorf("continuation token %q was already used", page.NextToken))
		}
		seen[page.NextToken] = struct{}{}
		token = page.NextToken
	}

	report := col.snapshot()
	status := domain.BackupCompleted
	if len(report.FailedItems) > 0 {
		status = domain.BackupCompletedWithWarnings
	}
	r.metrics.ReplicationFinished(status, time.Since(start))

	log.Info().
		Int("total_processed", report.TotalProcessed).
		Int("success_count", report.SuccessCount).
		Int("failed", len(report.FailedItems)).
		Dur("elapsed", time.Since(start)).
		Msg("bucket replication finished")

	return report, nil
}

// copyPage dispatches one copy per key and waits for all of them. It returns
// a non-nil error only when ctx ended before every key was dispatched.
func (r *Replicator) copyPage(
	ctx context.Context,
	log zerolog.Logger,
	sem *semaphore.Weighted,
	col *collector,
	source, target string,
	keys []string,
) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}

		col.dispatched()
		wg.Add(1)
		go func(key string) {
			defer sem.Release(1)
			defer wg.Done()

			err := r.copier.CopyObject(ctx, source, target, key)
			r.metrics.ObjectReplicated(err)
			if err != nil {
				log.Error().Err(err).Str("key", key).Str("code", storage.CodeOf(err)).Msg("failed to copy object")
			}
			col.record(key, err)
		}(key)
	}
	return nil
}

func (r *Replicator) interrupted(log zerolog.Logger, col *collector, start time.Time, cause error) (*domain.ReplicationReport, error) {
	report := col.snapshot()
	r.metrics.ReplicationFinished(domain.BackupFailed, time.Since(start))
	log.Warn().
		Err(cause).
		Int("total_processed", report.TotalProcessed).
		Int("success_count", report.SuccessCount).
		Msg("bucket replication interrupted")
	return report, fmt.Errorf("replication interrupted after %d objects: %w", report.TotalProcessed, cause)
}

func validatePair(source, target string) error {
	switch {
	case source == "":
		return &storage.Error{Op: "replicate", Kind: storage.ErrConfiguration, Err: errors.New("source bucket is not configured")}
	case target == "":
		return &storage.Error{Op: "replicate", Bucket: source, Kind: storage.ErrConfiguration, Err: errors.New("backup bucket is not configured")}
	case config.NormalizeBucketName(source) == config.NormalizeBucketName(target):
		return &storage.Error{Op: "replicate", Bucket: source, Kind: storage.ErrConfiguration, Err: errors.New("source and backup bucket are the same")}
	}
	return nil
}

func asListingError(bucket string, err error) error {
	if errors.Is(err, storage.ErrListing) {
		return err
	}
	return &storage.Error{Op: "list", Bucket: bucket, Code: storage.CodeOf(err), Kind: storage.ErrListing, Err: err}
}

// collector accumulates per-object outcomes from concurrent copies.
type collector struct {
	mu     sync.Mutex
	report domain.ReplicationReport
}

func (c *collector) dispatched() {
	c.mu.Lock()
	c.report.TotalProcessed++
	c.mu.Unlock()
}

func (c *collector) record(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.report.FailedItems = append(c.report.FailedItems, domain.FailedItem{Key: key, Error: err.Error()})
		return
	}
	c.report.SuccessCount++
}

func (c *collector) processed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report.TotalProcessed
}

func (c *collector) snapshot() *domain.ReplicationReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	report := c.report
	report.FailedItems = append([]domain.FailedItem{}, c.report.FailedItems...)
	return &report
}
