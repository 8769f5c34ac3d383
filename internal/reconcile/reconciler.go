// Package reconcile drains the offline sales queue into the remote ledger
// whenever the ledger is reachable.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/connectivity"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/offline"
	"github.com/odyssey-erp/odyssey-pos/internal/sales"
)

// ErrDrainInProgress rejects a drain while another one runs.
var ErrDrainInProgress = errors.New("reconcile: drain already in progress")

// ErrOffline rejects a manual drain while the terminal is offline.
var ErrOffline = errors.New("reconcile: terminal is offline")

const jobName = "sync:drain"

// Status is the reconciler state machine.
type Status string

const (
	Idle     Status = "idle"
	Draining Status = "draining"
)

// Trigger names what started a drain.
type Trigger string

const (
	TriggerOnline Trigger = "online"
	TriggerTick   Trigger = "tick"
	TriggerManual Trigger = "manual"
)

// Queue is the part of the offline queue the reconciler needs.
type Queue interface {
	ListPending(ctx context.Context) ([]offline.PendingSale, error)
	Remove(ctx context.Context, localID string) error
	Count(ctx context.Context) (int, error)
}

// Submitter sends a sale to the ledger. ledger.Client satisfies it.
type Submitter interface {
	SubmitSale(ctx context.Context, sale sales.Sale, idempotencyKey string) (ledger.Ack, error)
}

// Connectivity is the state source driving drains.
type Connectivity interface {
	State() connectivity.State
	OnTransition(fn func(connectivity.Transition))
}

// Report summarises one drain.
type Report struct {
	Trigger    Trigger   `json:"trigger"`
	Attempted  int       `json:"attempted"`
	Synced     int       `json:"synced"`
	Failed     int       `json:"failed"`
	Remaining  int       `json:"remaining"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Config wires a Reconciler.
type Config struct {
	Queue        Queue
	Submitter    Submitter
	Connectivity Connectivity
	Interval     time.Duration
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
}

// Reconciler moves between Idle and Draining. Drains start on a transition
// to online, on every interval tick while online, and on demand.
type Reconciler struct {
	queue     Queue
	submitter Submitter
	conn      Connectivity
	interval  time.Duration
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
	clock     func() time.Time

	draining   atomic.Bool
	onlineEdge atomic.Bool
	wake       chan struct{}

	mu   sync.RWMutex
	last *Report
}

// New constructs a reconciler.
func New(cfg Config) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		queue:     cfg.Queue,
		submitter: cfg.Submitter,
		conn:      cfg.Connectivity,
		interval:  interval,
		logger:    logger.With(slog.String("component", "reconcile")),
		metrics:   cfg.Metrics,
		clock:     time.Now,
		wake:      make(chan struct{}, 1),
	}
}

// Status reports whether a drain is running.
func (r *Reconciler) Status() Status {
	if r.draining.Load() {
		return Draining
	}
	return Idle
}

// LastReport returns the most recent drain report, if any.
func (r *Reconciler) LastReport() (Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Report{}, false
	}
	return *r.last, true
}

// Drain submits every pending sale in enqueue order. A sale is removed right
// after its own acknowledgment; failures are kept and the drain moves on.
func (r *Reconciler) Drain(ctx context.Context, trigger Trigger) (report Report, err error) {
	if !r.draining.CompareAndSwap(false, true) {
		return Report{}, ErrDrainInProgress
	}
	defer r.draining.Store(false)

	tracker := r.metrics.Track(jobName)
	defer func() {
		err = tracker.End(err)
	}()

	report = Report{Trigger: trigger, StartedAt: r.clock()}
	pending, err := r.queue.ListPending(ctx)
	if err != nil {
		r.logger.Error("list pending sales", slog.Any("error", err))
		return report, err
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}
		report.Attempted++
		logger := r.logger.With(slog.String("local_id", p.LocalID), slog.String("trigger", string(trigger)))
		ack, submitErr := r.submitter.SubmitSale(ctx, p.Sale, p.LocalID)
		if submitErr != nil {
			report.Failed++
			if ledger.IsRejected(submitErr) {
				logger.Error("ledger rejected queued sale; keeping it for review", slog.Any("error", submitErr))
			} else {
				logger.Warn("submit queued sale", slog.Any("error", submitErr))
			}
			continue
		}
		if removeErr := r.queue.Remove(ctx, p.LocalID); removeErr != nil {
			// Acknowledged remotely but still queued: it will be resubmitted
			// with the same idempotency key.
			report.Failed++
			logger.Error("remove synced sale", slog.String("folio", ack.Folio), slog.Any("error", removeErr))
			continue
		}
		report.Synced++
		logger.Info("queued sale synced", slog.String("folio", ack.Folio))
	}

	if remaining, countErr := r.queue.Count(ctx); countErr == nil {
		report.Remaining = remaining
		r.metrics.SetPending(remaining)
	} else {
		report.Remaining = len(pending) - report.Synced
	}
	report.FinishedAt = r.clock()
	r.metrics.ObserveSync("synced", report.Synced)
	r.metrics.ObserveSync("failed", report.Failed)

	r.mu.Lock()
	r.last = &report
	r.mu.Unlock()

	if report.Attempted > 0 {
		r.logger.Info("drain finished",
			slog.String("trigger", string(trigger)),
			slog.Int("attempted", report.Attempted),
			slog.Int("synced", report.Synced),
			slog.Int("failed", report.Failed),
			slog.Int("remaining", report.Remaining))
	}
	return report, nil
}

// Run drives drains from connectivity until ctx is cancelled. The ticker
// only runs while online; going offline stops it and lets an in-flight drain
// finish on its own.
func (r *Reconciler) Run(ctx context.Context) error {
	r.conn.OnTransition(func(tr connectivity.Transition) {
		if tr.To == connectivity.Online {
			r.onlineEdge.Store(true)
		}
		select {
		case r.wake <- struct{}{}:
		default:
		}
	})

	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	startTicker := func() {
		if ticker == nil {
			ticker = time.NewTicker(r.interval)
			tick = ticker.C
		}
	}
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer stopTicker()

	if r.conn.State() == connectivity.Online {
		startTicker()
		r.drainLogged(ctx, TriggerOnline)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
			edge := r.onlineEdge.Swap(false)
			if r.conn.State() != connectivity.Online {
				stopTicker()
				continue
			}
			startTicker()
			if edge {
				r.drainLogged(ctx, TriggerOnline)
			}
		case <-tick:
			if r.conn.State() == connectivity.Online {
				r.drainLogged(ctx, TriggerTick)
			}
		}
	}
}

func (r *Reconciler) drainLogged(ctx context.Context, trigger Trigger) {
	if _, err := r.Drain(ctx, trigger); err != nil && !errors.Is(err, ErrDrainInProgress) && ctx.Err() == nil {
		r.logger.Warn("drain", slog.String("trigger", string(trigger)), slog.Any("error", err))
	}
}
