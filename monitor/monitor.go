// Package monitor wires the scan controller to the history store, the
// device session and the optional telemetry sink, and fans changes out
// to readers such as the terminal UI.
package monitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"bleproximity/config"
	"bleproximity/history"
	"bleproximity/permission"
	"bleproximity/proximity"
	"bleproximity/scanner"
)

const sinkTimeout = 2 * time.Second

// Sink receives every completed cycle.
type Sink interface {
	Publish(ctx context.Context, res scanner.CycleResult) error
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger shared with the controller.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithSink forwards each cycle to s.
func WithSink(s Sink) Option {
	return func(m *Monitor) { m.sink = s }
}

// WithPermissions gates scanning behind c.
func WithPermissions(c permission.Checker) Option {
	return func(m *Monitor) { m.perms = c }
}

// WithClock replaces time.Now for the store and last-update stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// Monitor owns the single history store and the device session.
type Monitor struct {
	ctrl      *scanner.Controller
	store     *history.Store
	session   *scanner.Session
	sink      Sink
	perms     permission.Checker
	logger    *slog.Logger
	now       func() time.Time
	retention time.Duration

	mu         sync.RWMutex
	latest     proximity.Tally
	lastUpdate time.Time
	nextSub    int
	subs       map[int]func()
}

// New builds a monitor around radio using cfg for timing and bounds.
func New(radio scanner.Radio, cfg *config.Config, opts ...Option) *Monitor {
	m := &Monitor{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		retention: cfg.History.Retention,
		subs:      make(map[int]func()),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.store = history.NewStore(
		history.WithRetention(cfg.History.Retention),
		history.WithCapacity(cfg.History.Capacity),
		history.WithClock(m.now),
	)
	m.session = scanner.NewSession(cfg.Session.DeviceTTL)

	ctrlOpts := []scanner.Option{
		scanner.WithInterval(cfg.Scan.Interval),
		scanner.WithWindow(cfg.Scan.Window),
		scanner.WithServiceFilters(cfg.Scan.ServiceFilters),
		scanner.WithAllowDuplicates(cfg.Scan.AllowDuplicates),
		scanner.WithLogger(m.logger),
		scanner.OnCycle(m.handleCycle),
		scanner.OnStatus(m.handleStatus),
	}
	if m.perms != nil {
		ctrlOpts = append(ctrlOpts, scanner.WithPermissions(m.perms))
	}
	m.ctrl = scanner.NewController(radio, ctrlOpts...)
	return m
}

// Start initializes the radio.
func (m *Monitor) Start(ctx context.Context) error {
	return m.ctrl.Initialize(ctx)
}

// SetScanning starts or stops the scan schedule.
func (m *Monitor) SetScanning(ctx context.Context, on bool) error {
	return m.ctrl.SetScanning(ctx, on)
}

// Toggle flips between scanning and idle.
func (m *Monitor) Toggle(ctx context.Context) error {
	return m.ctrl.SetScanning(ctx, m.ctrl.State() != scanner.StateScanning)
}

// Scanning reports whether the schedule is running.
func (m *Monitor) Scanning() bool {
	return m.ctrl.State() == scanner.StateScanning
}

// Clear empties the history, resets the counters and forgets devices.
func (m *Monitor) Clear() {
	m.store.Clear()
	m.session.Reset()

	m.mu.Lock()
	m.latest = proximity.Tally{}
	m.lastUpdate = time.Time{}
	m.mu.Unlock()

	m.logger.Info("history cleared")
	m.notify()
}

// Snapshot returns the retained history, oldest first.
func (m *Monitor) Snapshot() []history.Snapshot {
	return m.store.Snapshot()
}

// Latest returns the most recent tally and when it was recorded. The time
// is zero before the first cycle or after Clear.
func (m *Monitor) Latest() (proximity.Tally, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.lastUpdate
}

// Devices returns the tracked devices, most recently seen first.
func (m *Monitor) Devices() []scanner.DeviceState {
	return m.session.Devices()
}

// Status returns the controller's latest status report.
func (m *Monitor) Status() scanner.Status {
	return m.ctrl.Status()
}

// Pending returns the devices recorded so far in the current window.
func (m *Monitor) Pending() int {
	return m.ctrl.Pending()
}

// Retention is the age limit of the history shown in the chart.
func (m *Monitor) Retention() time.Duration {
	if m.retention <= 0 {
		return history.DefaultRetention
	}
	return m.retention
}

// Subscribe registers fn to be called after every change. The returned
// function removes it. Callbacks run on scanner goroutines and must not block.
func (m *Monitor) Subscribe(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close stops scanning and releases the radio.
func (m *Monitor) Close() error {
	return m.ctrl.Close()
}

func (m *Monitor) handleCycle(res scanner.CycleResult) {
	m.store.Append(res.Tally)
	added := m.session.Update(res.Devices)

	m.mu.Lock()
	m.latest = res.Tally
	m.lastUpdate = m.now()
	m.mu.Unlock()

	for _, id := range added {
		m.logger.Debug("new device", "id", id, "vendor", scanner.Vendor(id))
	}

	if m.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := m.sink.Publish(ctx, res); err != nil {
			m.logger.Warn("publish tally", "cycle", res.ID, "error", err)
		}
		cancel()
	}

	m.notify()
}

func (m *Monitor) handleStatus(st scanner.Status) {
	if st.Err != nil && !scanner.IsTransient(st.Err) {
		m.logger.Warn("scanner unavailable", "state", st.State, "status", st.Message)
	}
	m.notify()
}

func (m *Monitor) notify() {
	m.mu.RLock()
	subs := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}
