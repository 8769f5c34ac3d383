// Package connectivity tracks whether the remote ledger is reachable and
// announces changes as discrete transitions.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the observed reachability of the ledger.
type State string

const (
	Online  State = "online"
	Offline State = "offline"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s == Online || s == Offline
}

// Transition is emitted once per state change.
type Transition struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// Prober checks the ledger. ledger.Client satisfies it.
type Prober interface {
	Ping(ctx context.Context) error
}

type listener struct {
	id int
	fn func(Transition)
}

// Monitor holds the current state. It starts offline until a probe or a
// report says otherwise.
type Monitor struct {
	mu        sync.RWMutex
	state     State
	changed   time.Time
	listeners []listener
	nextID    int

	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	clock    func() time.Time
}

// NewMonitor wires a monitor. A nil prober disables active probing; state then
// only changes through Set and ReportFailure.
func NewMonitor(prober Prober, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	timeout := interval / 2
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Monitor{
		state:    Offline,
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "connectivity")),
		clock:    time.Now,
	}
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Since returns when the current state was entered. Zero before the first change.
func (m *Monitor) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.changed
}

// OnTransition registers fn. Listeners run synchronously in registration
// order and must not block.
func (m *Monitor) OnTransition(fn func(Transition)) {
	m.Subscribe(fn)
}

// Subscribe registers fn like OnTransition and returns a func that removes it.
func (m *Monitor) Subscribe(fn func(Transition)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Set moves to state and reports whether a transition was emitted.
func (m *Monitor) Set(state State, reason string) bool {
	if !state.Valid() {
		return false
	}
	m.mu.Lock()
	if m.state == state {
		m.mu.Unlock()
		return false
	}
	tr := Transition{From: m.state, To: state, At: m.clock(), Reason: reason}
	m.state = state
	m.changed = tr.At
	listeners := append([]listener(nil), m.listeners...)
	m.mu.Unlock()

	m.logger.Info("connectivity changed", slog.String("from", string(tr.From)), slog.String("to", string(tr.To)), slog.String("reason", reason))
	for _, l := range listeners {
		l.fn(tr)
	}
	return true
}

// ReportFailure flips to offline after a failed call on the checkout path.
func (m *Monitor) ReportFailure(err error) {
	reason := "request failed"
	if err != nil {
		reason = err.Error()
	}
	m.Set(Offline, reason)
}

// Probe pings the ledger once and updates the state.
func (m *Monitor) Probe(ctx context.Context) State {
	if m.prober == nil {
		return m.State()
	}
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.prober.Ping(probeCtx); err != nil {
		if ctx.Err() == nil {
			m.Set(Offline, "probe: "+err.Error())
		}
		return m.State()
	}
	m.Set(Online, "probe succeeded")
	return m.State()
}

// Run probes immediately and then on every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m.prober == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
