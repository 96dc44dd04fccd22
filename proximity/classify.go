package proximity

import "math"

// Signal thresholds in dBm.
const (
	nearAbove = -75  // strictly greater than this is Near
	mediumMin = -85  // Medium covers [-85, -75]
	farMin    = -100 // Far covers [-100, -85)
)

// Category is a coarse distance bucket derived from an RSSI reading.
type Category int

const (
	OutOfRange Category = iota
	Near
	Medium
	Far
)

func (c Category) String() string {
	switch c {
	case Near:
		return "near"
	case Medium:
		return "medium"
	case Far:
		return "far"
	default:
		return "out-of-range"
	}
}

// Label returns the display name used by counters and the chart legend.
func (c Category) Label() string {
	switch c {
	case Near:
		return "Near"
	case Medium:
		return "Medium"
	case Far:
		return "Far"
	default:
		return "Out of range"
	}
}

// InRange reports whether devices in this category are counted.
func (c Category) InRange() bool {
	return c == Near || c == Medium || c == Far
}

// Categories returns the counted categories in display order.
func Categories() []Category {
	return []Category{Near, Medium, Far}
}

// Classify maps an RSSI reading (dBm) to a Category.
// NaN and infinities are treated as an absent reading.
func Classify(rssi float64) Category {
	if math.IsNaN(rssi) || math.IsInf(rssi, 0) {
		return OutOfRange
	}
	switch {
	case rssi > nearAbove:
		return Near
	case rssi >= mediumMin:
		return Medium
	case rssi >= farMin:
		return Far
	default:
		return OutOfRange
	}
}

// ClassifyOptional classifies a reading that may be missing.
func ClassifyOptional(rssi *int) Category {
	if rssi == nil {
		return OutOfRange
	}
	return Classify(float64(*rssi))
}

// Tally counts in-range devices per category.
type Tally struct {
	Near   int `json:"near"`
	Medium int `json:"medium"`
	Far    int `json:"far"`
}

// Add counts one device. OutOfRange is ignored.
func (t *Tally) Add(c Category) {
	switch c {
	case Near:
		t.Near++
	case Medium:
		t.Medium++
	case Far:
		t.Far++
	}
}

// Count returns the number of devices in category c.
func (t Tally) Count(c Category) int {
	switch c {
	case Near:
		return t.Near
	case Medium:
		return t.Medium
	case Far:
		return t.Far
	default:
		return 0
	}
}

// Total returns the number of in-range devices.
func (t Tally) Total() int {
	return t.Near + t.Medium + t.Far
}
