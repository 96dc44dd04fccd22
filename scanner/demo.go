package scanner

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	uuidBattery   = "0000180f-0000-1000-8000-00805f9b34fb"
	uuidHeartRate = "0000180d-0000-1000-8000-00805f9b34fb"
	uuidHID       = "00001812-0000-1000-8000-00805f9b34fb"
	uuidFastPair  = "0000fe2c-0000-1000-8000-00805f9b34fb"
)

// demoDevice is a simulated advertiser.
type demoDevice struct {
	name     string
	address  string
	baseRSSI int
	services []string
}

var demoDevices = []demoDevice{
	{"iPhone", "F0:18:98:4C:21:0A", -48, nil},
	{"Galaxy Watch5", "B0:72:BF:19:7E:33", -58, []string{uuidHeartRate, uuidBattery}},
	{"MX Master 3", "D4:C9:EF:12:88:A1", -66, []string{uuidHID, uuidBattery}},
	{"Pixel Buds Pro", "3C:28:6D:90:14:E2", -72, []string{uuidFastPair}},
	{"", "5A:2B:C8:71:0F:93", -77, nil}, // random address, no name
	{"Mi Band 7", "C8:0F:10:3A:5B:7C", -81, []string{uuidHeartRate}},
	{"ESP32-Sensor", "24:0A:C4:00:B1:E8", -84, []string{uuidBattery}},
	{"Tile", "E6:4B:2A:19:C0:5D", -89, nil},
	{"Sonos Roam", "48:A6:B8:2E:07:11", -93, nil},
	{"", "7E:11:43:DA:02:6F", -97, nil},
	{"LYWSD03MMC", "A4:C1:38:ED:C0:21", -106, []string{uuidBattery}}, // usually out of range
}

var roamingDevice = demoDevice{"Fitbit Charge", "C4:D9:87:21:AB:44", -76, []string{uuidHeartRate}}

// DemoRadio simulates nearby advertisers so the program runs without
// Bluetooth hardware or privileges.
type DemoRadio struct {
	every time.Duration // re-advertise period when duplicates are allowed

	mu   sync.Mutex
	rng  *rand.Rand
	stop chan struct{}
	done chan struct{}
}

// NewDemoRadio creates a simulated radio.
func NewDemoRadio() *DemoRadio {
	return &DemoRadio{
		every: 400 * time.Millisecond,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *DemoRadio) Init(context.Context) error { return nil }

// StartDiscovery begins advertising the simulated devices to handle.
func (r *DemoRadio) StartDiscovery(ctx context.Context, opts DiscoveryOptions, handle func(Discovery)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return ErrDiscoveryActive
	}

	devices := make([]demoDevice, 0, len(demoDevices)+1)
	devices = append(devices, demoDevices...)
	// Occasional roaming device to exercise the new-device badge (~30% chance).
	if r.rng.Intn(10) < 3 {
		devices = append(devices, roamingDevice)
	}
	devices = filterByService(devices, opts.ServiceFilters)

	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.advertise(ctx, opts, devices, handle, r.stop, r.done)
	return nil
}

// StopDiscovery stops the simulated advertisements and waits for the
// advertiser goroutine to exit. Stopping an idle radio is a no-op.
func (r *DemoRadio) StopDiscovery(ctx context.Context) error {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *DemoRadio) advertise(ctx context.Context, opts DiscoveryOptions, devices []demoDevice, handle func(Discovery), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var deadline <-chan time.Time
	if opts.Duration > 0 {
		t := time.NewTimer(opts.Duration)
		defer t.Stop()
		deadline = t.C
	}

	r.burst(devices, handle)
	if !opts.AllowDuplicates {
		select {
		case <-stop:
		case <-ctx.Done():
		case <-deadline:
		}
		return
	}

	ticker := time.NewTicker(r.every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			r.burst(devices, handle)
		}
	}
}

// burst emits one advertisement per device with -3..+3 dBm jitter.
func (r *DemoRadio) burst(devices []demoDevice, handle func(Discovery)) {
	now := time.Now()
	for _, d := range devices {
		r.mu.Lock()
		jitter := r.rng.Intn(7) - 3
		r.mu.Unlock()

		handle(Discovery{
			ID:      d.address,
			Name:    d.name,
			RSSI:    d.baseRSSI + jitter,
			HasRSSI: true,
			Seen:    now,
		})
	}
}

func filterByService(devices []demoDevice, filters []string) []demoDevice {
	if len(filters) == 0 {
		return devices
	}
	want := make(map[string]bool, len(filters))
	for _, f := range filters {
		want[normalizeUUID(f)] = true
	}

	var out []demoDevice
	for _, d := range devices {
		for _, s := range d.services {
			if want[s] {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
