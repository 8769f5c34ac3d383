package offline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/sales"
)

// Queue is the offline sales queue. Every operation holds the queue lock so a
// drain snapshot never interleaves with an enqueue or removal.
type Queue struct {
	mu      sync.Mutex
	store   Store
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	clock   func() time.Time
	newID   func() string
}

// NewQueue wires a queue over store.
func NewQueue(store Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:   store,
		logger:  logger.With(slog.String("component", "offline")),
		metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		newID: NewLocalID,
	}
}

// Enqueue durably appends sale and returns its local folio.
func (q *Queue) Enqueue(ctx context.Context, sale sales.Sale) (string, error) {
	return q.EnqueueWithID(ctx, q.newID(), sale)
}

// EnqueueWithID appends sale under a folio the caller already issued, so a
// submission attempted before queueing keeps its idempotency key.
func (q *Queue) EnqueueWithID(ctx context.Context, localID string, sale sales.Sale) (string, error) {
	if !IsLocalFolio(localID) {
		return "", fmt.Errorf("offline: %q is not a local folio", localID)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := PendingSale{LocalID: localID, Sale: sale, CreatedAt: q.clock()}
	if err := q.store.Append(ctx, pending); err != nil {
		return "", err
	}
	q.logger.Info("sale queued offline", slog.String("local_id", pending.LocalID), slog.Float64("total", sale.Total))
	q.refreshGauge(ctx)
	return pending.LocalID, nil
}

// ListPending returns a snapshot of queued sales, oldest first.
func (q *Queue) ListPending(ctx context.Context) ([]PendingSale, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.List(ctx)
}

// Remove deletes a sale after the ledger acknowledged it. Removing an unknown
// ID is a no-op.
func (q *Queue) Remove(ctx context.Context, localID string) error {
	if strings.TrimSpace(localID) == "" {
		return ErrEmptyID
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Delete(ctx, localID); err != nil {
		return err
	}
	q.refreshGauge(ctx)
	return nil
}

// Count reports the number of queued sales.
func (q *Queue) Count(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Len(ctx)
}

// Close flushes the backing store at shutdown.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Flush(ctx); err != nil {
		return fmt.Errorf("offline: close queue: %w", err)
	}
	return nil
}

func (q *Queue) refreshGauge(ctx context.Context) {
	if q.metrics == nil {
		return
	}
	if n, err := q.store.Len(ctx); err == nil {
		q.metrics.SetPending(n)
	}
}
