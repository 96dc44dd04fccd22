package scanner

import (
	"sort"
	"sync"

	"bleproximity/proximity"
)

// cycle holds the devices seen during one discovery window, keyed by
// identity. A fresh cycle is created for every window; once closed, late
// discoveries are ignored so a tally never sees the next window's events.
type cycle struct {
	mu      sync.Mutex
	devices map[string]DeviceReading
	closed  bool
}

func newCycle() *cycle {
	return &cycle{devices: make(map[string]DeviceReading)}
}

// record keeps the latest in-range reading for d's device.
// Discoveries without an identity or RSSI, and out-of-range readings, are dropped.
func (c *cycle) record(d Discovery) bool {
	if d.ID == "" || !d.HasRSSI {
		return false
	}
	cat := proximity.Classify(float64(d.RSSI))
	if !cat.InRange() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	name := d.Name
	if prev, ok := c.devices[d.ID]; ok && name == "" {
		name = prev.Name
	}
	c.devices[d.ID] = DeviceReading{
		ID:       d.ID,
		Name:     name,
		RSSI:     d.RSSI,
		Category: cat,
		Seen:     d.Seen,
	}
	return true
}

// close stops recording and returns the readings, strongest first.
func (c *cycle) close() []DeviceReading {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	out := make([]DeviceReading, 0, len(c.devices))
	for _, r := range c.devices {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *cycle) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.devices)
}

// tallyOf counts readings per category.
func tallyOf(readings []DeviceReading) proximity.Tally {
	var t proximity.Tally
	for _, r := range readings {
		t.Add(r.Category)
	}
	return t
}
