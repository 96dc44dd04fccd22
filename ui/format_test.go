package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bleproximity/proximity"
	"bleproximity/scanner"
)

func TestSignalBars(t *testing.T) {
	tests := []struct {
		rssi  int
		bars  int
		color string
	}{
		{-30, 10, colorGreen},
		{-62, 7, colorCyan},
		{-76, 5, colorYellow},
		{-92, 2, colorOrange},
		{-100, 1, colorRed},
		{-101, 0, colorRed},
	}
	for _, tt := range tests {
		bars, color := signalBars(tt.rssi)
		assert.Equal(t, tt.bars, bars, tt.rssi)
		assert.Equal(t, tt.color, color, tt.rssi)
	}
}

func TestBarString(t *testing.T) {
	assert.Equal(t, "███░░░░░░░", barString(3))
}

func TestCategoryColor(t *testing.T) {
	assert.Equal(t, colorGreen, categoryColor(proximity.Near))
	assert.Equal(t, colorDim, categoryColor(proximity.OutOfRange))
}

func TestSince(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "—", since(now, time.Time{}))
	assert.Equal(t, "now", since(now, now))
	assert.Equal(t, "12s ago", since(now, now.Add(-12*time.Second)))
	assert.Equal(t, "3m ago", since(now, now.Add(-200*time.Second)))
}

func TestDetailText(t *testing.T) {
	d := scanner.DeviceState{
		ID:          "F0:18:98:4C:21:0A",
		Vendor:      "Apple",
		RSSI:        -60,
		Category:    proximity.Near,
		RSSIHistory: []int{-62, -60},
		MinRSSI:     -62,
		MaxRSSI:     -60,
	}
	text := detailText(d)
	assert.Contains(t, text, "<unnamed>")
	assert.Contains(t, text, "-60 dBm  (min -62 / max -60)")
	assert.Contains(t, text, "Near")
}
