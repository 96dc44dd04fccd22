package scanner

import (
	"context"
	"strings"
	"time"

	"bleproximity/proximity"
)

// Discovery is a single advertisement observed by the radio.
type Discovery struct {
	ID      string // stable device identity for the duration of a cycle
	Name    string
	RSSI    int // dBm, valid only when HasRSSI
	HasRSSI bool
	Seen    time.Time
}

// DiscoveryOptions are passed to Radio.StartDiscovery.
type DiscoveryOptions struct {
	ServiceFilters  []string      // advertised service UUIDs; empty matches everything
	Duration        time.Duration // the radio may stop on its own after this long
	AllowDuplicates bool          // report repeated advertisements from the same device
}

// Radio is the platform Bluetooth stack as seen by the controller.
// StartDiscovery returns once discovery is running; handle is then invoked
// from radio goroutines until StopDiscovery returns.
type Radio interface {
	Init(ctx context.Context) error
	StartDiscovery(ctx context.Context, opts DiscoveryOptions, handle func(Discovery)) error
	StopDiscovery(ctx context.Context) error
}

// DeviceReading is the latest in-range reading kept for a device in one cycle.
type DeviceReading struct {
	ID       string
	Name     string
	RSSI     int
	Category proximity.Category
	Seen     time.Time
}

const baseUUIDSuffix = "-0000-1000-8000-00805f9b34fb"

// normalizeUUID lower-cases a service UUID and expands 16-bit short forms
// ("180f") to the full Bluetooth base UUID.
func normalizeUUID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch len(s) {
	case 4:
		return "0000" + s + baseUUIDSuffix
	case 8:
		return s + baseUUIDSuffix
	default:
		return s
	}
}
