package reconcile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/odyssey-erp/odyssey-pos/internal/connectivity"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/offline"
	"github.com/odyssey-erp/odyssey-pos/internal/sales"
)

type scriptedLedger struct {
	mu      sync.Mutex
	calls   []string
	totals  map[string]float64
	fail    map[string]error
	gate    chan struct{}
	entered chan struct{}
}

func newScriptedLedger() *scriptedLedger {
	return &scriptedLedger{totals: map[string]float64{}, fail: map[string]error{}}
}

func (l *scriptedLedger) SubmitSale(ctx context.Context, sale sales.Sale, key string) (ledger.Ack, error) {
	l.mu.Lock()
	l.calls = append(l.calls, key)
	l.totals[key] = sale.Total
	err := l.fail[key]
	gate, entered := l.gate, l.entered
	l.mu.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return ledger.Ack{}, err
	}
	return ledger.Ack{Success: true, Folio: "A-" + key[len(key)-4:]}, nil
}

func (l *scriptedLedger) failWith(key string, err error) {
	l.mu.Lock()
	l.fail[key] = err
	l.mu.Unlock()
}

func (l *scriptedLedger) attempts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *scriptedLedger) attempted(key string) bool {
	for _, k := range l.attempts() {
		if k == key {
			return true
		}
	}
	return false
}

type ReconcilerSuite struct {
	suite.Suite
	ctx        context.Context
	queue      *offline.Queue
	ledger     *scriptedLedger
	monitor    *connectivity.Monitor
	reconciler *Reconciler
}

func (s *ReconcilerSuite) SetupTest() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	s.ctx = context.Background()
	s.queue = offline.NewQueue(offline.NewRedisStore(client, nil), nil, nil)
	s.ledger = newScriptedLedger()
	s.monitor = connectivity.NewMonitor(nil, time.Second, nil)
	s.reconciler = New(Config{
		Queue:        s.queue,
		Submitter:    s.ledger,
		Connectivity: s.monitor,
		Interval:     10 * time.Millisecond,
	})
}

func (s *ReconcilerSuite) enqueue(total float64) string {
	id, err := s.queue.Enqueue(s.ctx, sales.Sale{
		Items:         []sales.Item{{SKU: "X", Quantity: 1, UnitPrice: total, Amount: total}},
		Total:         total,
		PaymentMethod: sales.PaymentCard,
		BranchID:      1,
		UserID:        1,
	})
	s.Require().NoError(err)
	return id
}

func (s *ReconcilerSuite) pendingIDs() []string {
	pending, err := s.queue.ListPending(s.ctx)
	s.Require().NoError(err)
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.LocalID)
	}
	return ids
}

func (s *ReconcilerSuite) run() context.CancelFunc {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.reconciler.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *ReconcilerSuite) TestDrainKeepsFailuresAndContinues() {
	a := s.enqueue(10)
	b := s.enqueue(20)
	s.ledger.failWith(a, &ledger.NetworkError{Op: "submit sale", Status: 503})

	report, err := s.reconciler.Drain(s.ctx, TriggerManual)
	s.Require().NoError(err)
	s.Equal(Report{Trigger: TriggerManual, Attempted: 2, Synced: 1, Failed: 1, Remaining: 1, StartedAt: report.StartedAt, FinishedAt: report.FinishedAt}, report)
	s.Equal([]string{a, b}, s.ledger.attempts(), "enqueue order is preserved")
	s.Equal([]string{a}, s.pendingIDs())

	last, ok := s.reconciler.LastReport()
	s.True(ok)
	s.Equal(report, last)
}

func (s *ReconcilerSuite) TestRejectedSaleStaysQueued() {
	a := s.enqueue(10)
	s.ledger.failWith(a, &ledger.RejectedError{Status: 422, Message: "sin stock"})

	report, err := s.reconciler.Drain(s.ctx, TriggerManual)
	s.Require().NoError(err)
	s.Equal(1, report.Failed)
	s.Equal([]string{a}, s.pendingIDs())
}

func (s *ReconcilerSuite) TestSubmissionCarriesLocalIDAndPayload() {
	a := s.enqueue(42.5)
	_, err := s.reconciler.Drain(s.ctx, TriggerManual)
	s.Require().NoError(err)
	s.Equal([]string{a}, s.ledger.attempts())
	s.Equal(42.5, s.ledger.totals[a])
	s.Empty(s.pendingIDs())
}

func (s *ReconcilerSuite) TestConcurrentDrainRejected() {
	s.enqueue(10)
	s.ledger.gate = make(chan struct{})
	s.ledger.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := s.reconciler.Drain(s.ctx, TriggerTick)
		done <- err
	}()
	<-s.ledger.entered
	s.Equal(Draining, s.reconciler.Status())

	_, err := s.reconciler.Drain(s.ctx, TriggerManual)
	s.ErrorIs(err, ErrDrainInProgress)

	close(s.ledger.gate)
	s.NoError(<-done)
	s.Equal(Idle, s.reconciler.Status())
}

func (s *ReconcilerSuite) TestOnlineTransitionDrainsQueue() {
	a := s.enqueue(10)
	stop := s.run()
	defer stop()

	time.Sleep(30 * time.Millisecond)
	s.Empty(s.ledger.attempts(), "nothing is submitted while offline")

	s.monitor.Set(connectivity.Online, "probe")
	s.Eventually(func() bool {
		return s.ledger.attempted(a) && len(s.pendingIDs()) == 0
	}, time.Second, 5*time.Millisecond)
}

func (s *ReconcilerSuite) TestOfflineStopsPeriodicDrains() {
	stop := s.run()
	defer stop()

	s.monitor.Set(connectivity.Online, "probe")
	first := s.enqueue(1)
	s.Eventually(func() bool { return s.ledger.attempted(first) }, time.Second, 5*time.Millisecond)

	s.monitor.Set(connectivity.Offline, "probe")
	time.Sleep(20 * time.Millisecond)
	later := s.enqueue(2)
	time.Sleep(60 * time.Millisecond)
	s.False(s.ledger.attempted(later), "ticker stops while offline")

	s.monitor.Set(connectivity.Online, "probe")
	s.Eventually(func() bool { return s.ledger.attempted(later) }, time.Second, 5*time.Millisecond)
}

func (s *ReconcilerSuite) TestHandlerRoutes() {
	s.enqueue(5)
	r := chi.NewRouter()
	r.Route("/sync", NewHandler(s.reconciler).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync/status", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"pending":1`)
	s.Contains(rec.Body.String(), `"connectivity":"offline"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync/drain", nil))
	s.Equal(http.StatusConflict, rec.Code)
	s.Empty(s.ledger.attempts(), "offline drains never reach the ledger")
	s.Len(s.pendingIDs(), 1)
	_, ok := s.reconciler.LastReport()
	s.False(ok)

	s.monitor.Set(connectivity.Online, "test")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync/drain", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"synced":1`)
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

type brokenQueue struct{}

func (brokenQueue) ListPending(context.Context) ([]offline.PendingSale, error) {
	return nil, errors.New("redis: connection refused")
}
func (brokenQueue) Remove(context.Context, string) error { return nil }
func (brokenQueue) Count(context.Context) (int, error)   { return 0, nil }

func TestDrainListFailureLeavesIdle(t *testing.T) {
	r := New(Config{Queue: brokenQueue{}, Submitter: newScriptedLedger(), Connectivity: connectivity.NewMonitor(nil, time.Second, nil)})
	_, err := r.Drain(context.Background(), TriggerManual)
	require.Error(t, err)
	assert.Equal(t, Idle, r.Status())
}
