package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"bleproximity/permission"
	"bleproximity/proximity"
	"bleproximity/tracer"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultWindow   = 3 * time.Second
)

// State is the controller's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateIdle
	StateScanning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is a human-readable report emitted on every transition.
type Status struct {
	State   State
	Message string
	Err     error
	At      time.Time
}

// CycleResult is the outcome of one completed scan cycle.
type CycleResult struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Tally    proximity.Tally
	Devices  []DeviceReading // strongest first
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the cycle cadence.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithWindow sets how long discovery runs in each cycle.
func WithWindow(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithServiceFilters restricts discovery to devices advertising one of uuids.
func WithServiceFilters(uuids []string) Option {
	return func(c *Controller) { c.filters = append([]string(nil), uuids...) }
}

// WithAllowDuplicates asks the radio to report repeated advertisements.
func WithAllowDuplicates(allow bool) Option {
	return func(c *Controller) { c.allowDuplicates = allow }
}

// WithPermissions gates SetScanning(true) on a permission check.
func WithPermissions(p permission.Checker) Option {
	return func(c *Controller) { c.perms = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// OnCycle registers the receiver of completed cycles. It runs on the
// scan loop goroutine and must not call SetScanning or Close.
func OnCycle(fn func(CycleResult)) Option {
	return func(c *Controller) { c.onCycle = fn }
}

// OnStatus registers the receiver of status updates.
func OnStatus(fn func(Status)) Option {
	return func(c *Controller) { c.onStatus = fn }
}

// Controller runs the periodic scan cycle against a Radio.
//
// Each cycle discovers for the window duration, keeps the latest in-range
// reading per device, and reports the per-category tally. Cycles run one
// at a time on a single loop goroutine. The ticker holds at most one
// pending tick, so a cycle that overruns the interval is followed at once
// by the next one and further ticks are dropped.
type Controller struct {
	radio           Radio
	perms           permission.Checker
	logger          *slog.Logger
	interval        time.Duration
	window          time.Duration
	filters         []string
	allowDuplicates bool
	onCycle         func(CycleResult)
	onStatus        func(Status)
	now             func() time.Time

	mu      sync.Mutex
	state   State
	status  Status
	current *cycle
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewController creates an uninitialized controller for radio.
func NewController(radio Radio, opts ...Option) *Controller {
	c := &Controller{
		radio:           radio,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		interval:        DefaultInterval,
		window:          DefaultWindow,
		allowDuplicates: true,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.status = Status{State: StateUninitialized, Message: "not started", At: c.now()}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the most recent status report.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Initialize sets up the radio. On failure the controller enters
// StateFailed and refuses to scan until Initialize succeeds.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUninitialized && c.state != StateFailed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.radio.Init(ctx); err != nil {
		err = fmt.Errorf("%w: %w", ErrInitialization, err)
		c.logger.Error("bluetooth init failed", "error", err)
		c.transition(StateFailed, "initialization failed", err)
		return err
	}

	c.logger.Info("bluetooth ready")
	c.transition(StateReady, "ready", nil)
	return nil
}

// SetScanning starts or stops the periodic schedule.
//
// Starting runs one cycle immediately and then one per interval. Stopping
// cancels the schedule and any in-flight window, waits for the loop to
// exit, asks the radio to stop, and discards the current device map.
func (c *Controller) SetScanning(ctx context.Context, on bool) error {
	if on {
		return c.start(ctx)
	}
	c.stop(ctx)
	return nil
}

func (c *Controller) start(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateFailed:
		return ErrInitialization
	case StateScanning:
		return nil
	}

	if c.perms != nil && !c.perms.CheckGranted() {
		res := c.perms.RequestGrant()
		if !res.Granted {
			err := fmt.Errorf("%w: %s", ErrPermissionDenied, res.Message)
			c.logger.Warn("scan refused", "error", err)
			c.transition(state, res.Message, err)
			return err
		}
	}

	c.mu.Lock()
	if c.state == StateScanning {
		c.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.current = nil
	c.state = StateScanning
	c.mu.Unlock()

	c.logger.Info("scanning started", "interval", c.interval, "window", c.window)
	c.transition(StateScanning, "scanning", nil)
	go c.loop(loopCtx, done)
	return nil
}

func (c *Controller) stop(ctx context.Context) {
	c.mu.Lock()
	if c.state == StateUninitialized || c.state == StateFailed {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	c.stopRadio(ctx)

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	c.logger.Info("scanning stopped")
	c.transition(StateIdle, "stopped", nil)
}

// Close cancels any schedule and releases the radio. Stop errors are
// logged and dropped. Close is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	state := c.state
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if state == StateUninitialized || state == StateFailed {
		return nil
	}
	c.stopRadio(context.Background())

	c.mu.Lock()
	c.current = nil
	c.state = StateReady
	c.mu.Unlock()
	return nil
}

func (c *Controller) stopRadio(ctx context.Context) {
	if err := c.radio.StopDiscovery(ctx); err != nil {
		c.logger.Debug("stop discovery", "error", err)
	}
}

func (c *Controller) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunCycle(ctx)
		}
	}
}

// RunCycle performs a single scan cycle synchronously: discover for the
// window duration, stop the radio, then tally the devices seen.
// Start and stop failures are logged, reported as status, and returned;
// a failed cycle produces no result.
func (c *Controller) RunCycle(ctx context.Context) (CycleResult, error) {
	ctx, span := tracer.StartSpan(ctx, "scanner.cycle")
	defer span.End()

	started := c.now()
	cyc := newCycle()
	c.mu.Lock()
	c.current = cyc
	c.mu.Unlock()

	c.report("scanning...", nil)

	opts := DiscoveryOptions{
		ServiceFilters:  c.filters,
		Duration:        c.window,
		AllowDuplicates: c.allowDuplicates,
	}
	if err := c.radio.StartDiscovery(ctx, opts, func(d Discovery) { cyc.record(d) }); err != nil {
		cyc.close()
		if ctx.Err() != nil {
			return CycleResult{}, ctx.Err()
		}
		err = fmt.Errorf("%w: %w", ErrScanStart, err)
		c.logger.Error("scan failed", "error", err)
		tracer.RecordError(span, err)
		c.report("scan failed", err)
		return CycleResult{}, err
	}

	timer := time.NewTimer(c.window)
	select {
	case <-ctx.Done():
		timer.Stop()
		cyc.close()
		return CycleResult{}, ctx.Err()
	case <-timer.C:
	}

	// Stop before reading the map so no discovery lands after the tally.
	stopErr := c.radio.StopDiscovery(ctx)
	devices := cyc.close()
	if stopErr != nil {
		if ctx.Err() != nil {
			return CycleResult{}, ctx.Err()
		}
		err := fmt.Errorf("%w: %w", ErrScanStop, stopErr)
		c.logger.Error("scan error", "error", err)
		tracer.RecordError(span, err)
		c.report("scan error", err)
		return CycleResult{}, err
	}

	res := CycleResult{
		ID:       newCycleID(started),
		Started:  started,
		Finished: c.now(),
		Tally:    tallyOf(devices),
		Devices:  devices,
	}

	span.SetAttributes(
		tracer.StringAttr("cycle.id", res.ID),
		tracer.IntAttr("tally.near", res.Tally.Near),
		tracer.IntAttr("tally.medium", res.Tally.Medium),
		tracer.IntAttr("tally.far", res.Tally.Far),
	)
	tracer.SetOK(span)
	c.logger.Debug("scan cycle complete",
		"cycle", res.ID,
		"near", res.Tally.Near,
		"medium", res.Tally.Medium,
		"far", res.Tally.Far,
		"elapsed", res.Finished.Sub(res.Started),
	)

	if c.onCycle != nil {
		c.onCycle(res)
	}
	c.report(fmt.Sprintf("found %d devices in range", res.Tally.Total()), nil)
	return res, nil
}

// Pending returns the number of in-range devices recorded so far in the
// current discovery window.
func (c *Controller) Pending() int {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil {
		return 0
	}
	return cur.len()
}

// report emits a status without changing state.
func (c *Controller) report(msg string, err error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	c.transition(state, msg, err)
}

func (c *Controller) transition(state State, msg string, err error) {
	st := Status{State: state, Message: msg, Err: err, At: c.now()}

	c.mu.Lock()
	c.state = state
	c.status = st
	c.mu.Unlock()

	if c.onStatus != nil {
		c.onStatus(st)
	}
}

func newCycleID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// IsTransient reports whether err is a per-cycle failure that the
// schedule recovers from on its own.
func IsTransient(err error) bool {
	return errors.Is(err, ErrScanStart) || errors.Is(err, ErrScanStop)
}
