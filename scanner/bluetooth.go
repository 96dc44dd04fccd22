package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

const (
	startGrace  = 100 * time.Millisecond
	stopTimeout = 2 * time.Second
)

// scanAdapter is the part of *bluetooth.Adapter the radio drives.
type scanAdapter interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// scanRun is one adapter.Scan call. err is valid once done is closed.
type scanRun struct {
	done chan struct{}
	err  error
}

func (s *scanRun) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// BluetoothRadio discovers advertisements through the host Bluetooth stack
// (BlueZ over D-Bus on Linux, CoreBluetooth on macOS, WinRT on Windows).
type BluetoothRadio struct {
	adapter scanAdapter
	logger  *slog.Logger

	mu    sync.Mutex
	run   *scanRun // non-nil until the scan goroutine has exited and been reaped
	timer *time.Timer
}

// NewBluetoothRadio wraps the default host adapter.
func NewBluetoothRadio(logger *slog.Logger) *BluetoothRadio {
	return newBluetoothRadio(bluetooth.DefaultAdapter, logger)
}

func newBluetoothRadio(a scanAdapter, logger *slog.Logger) *BluetoothRadio {
	return &BluetoothRadio{adapter: a, logger: logger}
}

// Init powers up the adapter.
func (r *BluetoothRadio) Init(context.Context) error {
	if err := r.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	return nil
}

// StartDiscovery starts a background scan that reports matching
// advertisements to handle. It returns the adapter's error when the scan
// fails to start, and ErrDiscoveryActive while a previous scan is still
// winding down. The scan stops itself after opts.Duration.
func (r *BluetoothRadio) StartDiscovery(ctx context.Context, opts DiscoveryOptions, handle func(Discovery)) error {
	filter, err := newAdvertFilter(opts)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.run != nil {
		if !r.run.finished() {
			r.mu.Unlock()
			return ErrDiscoveryActive
		}
		r.run = nil
	}
	run := &scanRun{done: make(chan struct{})}
	r.run = run
	r.mu.Unlock()

	advertising := make(chan struct{})
	var once sync.Once

	go func() {
		defer close(run.done)
		// Scan blocks until StopScan is called.
		run.err = r.adapter.Scan(func(_ *bluetooth.Adapter, res bluetooth.ScanResult) {
			once.Do(func() { close(advertising) })
			id := res.Address.String()
			if !filter.accept(id, res.HasServiceUUID) {
				return
			}
			handle(Discovery{
				ID:      id,
				Name:    res.LocalName(),
				RSSI:    int(res.RSSI),
				HasRSSI: true,
				Seen:    time.Now(),
			})
		})
		if run.err != nil {
			r.logger.Warn("bluetooth scan ended", "error", run.err)
		}
	}()

	// The adapter reports start failures by returning from Scan right away.
	grace := time.NewTimer(startGrace)
	defer grace.Stop()
	select {
	case <-run.done:
		r.mu.Lock()
		if r.run == run {
			r.run = nil
		}
		r.mu.Unlock()
		if run.err != nil {
			return fmt.Errorf("start scan: %w", run.err)
		}
		return errors.New("start scan: scan ended before it started")
	case <-advertising:
	case <-grace.C:
	}

	if opts.Duration > 0 {
		r.mu.Lock()
		r.timer = time.AfterFunc(opts.Duration, func() {
			if err := r.adapter.StopScan(); err != nil {
				r.logger.Debug("scan self-stop", "error", err)
			}
		})
		r.mu.Unlock()
	}
	return nil
}

// StopDiscovery stops the scan and waits for it to wind down. A scan that
// failed after starting reports its error here. If the scan does not wind
// down in time the radio stays busy, and a later StopDiscovery retries.
func (r *BluetoothRadio) StopDiscovery(ctx context.Context) error {
	r.mu.Lock()
	run := r.run
	if run == nil {
		r.mu.Unlock()
		return nil
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	stopErr := r.adapter.StopScan()

	select {
	case <-run.done:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(stopTimeout):
		return fmt.Errorf("scan did not stop within %s", stopTimeout)
	}

	r.mu.Lock()
	if r.run == run {
		r.run = nil
	}
	r.mu.Unlock()

	switch {
	case run.err != nil:
		return run.err
	case stopErr != nil:
		// The adapter complains when asked to stop a scan that already
		// stopped itself at the end of the window.
		r.logger.Debug("stop scan", "error", stopErr)
	}
	return nil
}

// advertFilter implements service filtering and duplicate suppression.
type advertFilter struct {
	services []bluetooth.UUID
	dedup    bool

	mu   sync.Mutex
	seen map[string]bool
}

func newAdvertFilter(opts DiscoveryOptions) (*advertFilter, error) {
	f := &advertFilter{dedup: !opts.AllowDuplicates, seen: make(map[string]bool)}
	for _, s := range opts.ServiceFilters {
		u, err := bluetooth.ParseUUID(normalizeUUID(s))
		if err != nil {
			return nil, fmt.Errorf("service filter %q: %w", s, err)
		}
		f.services = append(f.services, u)
	}
	return f, nil
}

// accept reports whether an advertisement from id should be delivered.
func (f *advertFilter) accept(id string, hasService func(bluetooth.UUID) bool) bool {
	if len(f.services) > 0 {
		match := false
		for _, u := range f.services {
			if hasService(u) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if !f.dedup {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[id] {
		return false
	}
	f.seen[id] = true
	return true
}
