package scanner

import (
	"sort"
	"sync"
	"time"

	"bleproximity/proximity"
)

const (
	maxHistory = 10
	newTimeout = 30 * time.Second
)

// sparkBlocks maps signal intensity (0-7) to block characters.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// DeviceState is what the session remembers about a device across cycles.
type DeviceState struct {
	ID          string
	Name        string
	Vendor      string
	RSSI        int
	Category    proximity.Category
	FirstSeen   time.Time
	LastSeen    time.Time
	RSSIHistory []int
	MinRSSI     int
	MaxRSSI     int
}

// IsNew reports whether the device first appeared within the last 30 seconds.
func (d DeviceState) IsNew(now time.Time) bool {
	return now.Sub(d.FirstSeen) < newTimeout
}

// Sparkline renders the recent RSSI readings, one block per cycle.
func (d DeviceState) Sparkline() string {
	return Sparkline(d.RSSIHistory)
}

// Sparkline maps dBm readings in [-100, -20] onto eight block heights.
func Sparkline(readings []int) string {
	if len(readings) == 0 {
		return ""
	}
	runes := make([]rune, len(readings))
	for i, rssi := range readings {
		idx := (rssi + 100) * 7 / 80
		idx = max(0, min(idx, 7))
		runes[i] = sparkBlocks[idx]
	}
	return string(runes)
}

// Session tracks devices across scan cycles. Devices not seen for longer
// than the TTL are forgotten on the next update.
type Session struct {
	mu      sync.Mutex
	devices map[string]*DeviceState
	ttl     time.Duration
	now     func() time.Time
}

// NewSession creates an empty tracker. A non-positive ttl keeps devices forever.
func NewSession(ttl time.Duration) *Session {
	return &Session{
		devices: make(map[string]*DeviceState),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Update folds one cycle's readings into the session and returns the IDs
// seen for the first time.
func (s *Session) Update(readings []DeviceReading) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var added []string
	for _, r := range readings {
		d, ok := s.devices[r.ID]
		if !ok {
			d = &DeviceState{
				ID:        r.ID,
				Vendor:    Vendor(r.ID),
				FirstSeen: now,
				MinRSSI:   r.RSSI,
				MaxRSSI:   r.RSSI,
			}
			s.devices[r.ID] = d
			added = append(added, r.ID)
		}

		if r.Name != "" {
			d.Name = r.Name
		}
		d.RSSI = r.RSSI
		d.Category = r.Category
		d.LastSeen = now
		d.MinRSSI = min(d.MinRSSI, r.RSSI)
		d.MaxRSSI = max(d.MaxRSSI, r.RSSI)

		d.RSSIHistory = append(d.RSSIHistory, r.RSSI)
		if len(d.RSSIHistory) > maxHistory {
			d.RSSIHistory = d.RSSIHistory[len(d.RSSIHistory)-maxHistory:]
		}
	}

	s.evictLocked(now)
	return added
}

func (s *Session) evictLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, d := range s.devices {
		if now.Sub(d.LastSeen) > s.ttl {
			delete(s.devices, id)
		}
	}
}

// Get returns a copy of the device state.
func (s *Session) Get(id string) (DeviceState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return DeviceState{}, false
	}
	return d.copy(), true
}

// Count returns the number of tracked devices.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

// Devices returns copies of the tracked devices, strongest signal first.
// Devices missing from the most recent cycle sort after those present in it.
func (s *Session) Devices() []DeviceState {
	s.mu.Lock()
	out := make([]DeviceState, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d.copy())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.LastSeen.Equal(b.LastSeen) {
			return a.LastSeen.After(b.LastSeen)
		}
		if a.RSSI != b.RSSI {
			return a.RSSI > b.RSSI
		}
		return a.ID < b.ID
	})
	return out
}

// Reset forgets every device.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = make(map[string]*DeviceState)
}

func (d *DeviceState) copy() DeviceState {
	c := *d
	c.RSSIHistory = append([]int(nil), d.RSSIHistory...)
	return c
}
