package ui

import (
	"fmt"
	"strings"
	"time"

	"bleproximity/proximity"
)

// Neon palette
const (
	colorCyan    = "#00ffff"
	colorMagenta = "#ff00ff"
	colorGreen   = "#00ff41"
	colorOrange  = "#ff8c00"
	colorRed     = "#ff0040"
	colorDim     = "#444444"
	colorMuted   = "#888888"
	colorYellow  = "#ffff00"
	colorHotPink = "#ff1493"

	colorDarkMagenta = "#330033"
	colorHeaderBg    = "#1a0033"
)

// categoryColor matches the counters, the chart rows and the table.
func categoryColor(c proximity.Category) string {
	switch c {
	case proximity.Near:
		return colorGreen
	case proximity.Medium:
		return colorYellow
	case proximity.Far:
		return colorOrange
	default:
		return colorDim
	}
}

// signalBars maps dBm to a bar count (0-10) and a color. BLE readings sit
// lower than WiFi ones, so the scale runs from -40 down to -100.
func signalBars(rssi int) (int, string) {
	switch {
	case rssi >= -40:
		return 10, colorGreen
	case rssi >= -50:
		return 9, colorGreen
	case rssi >= -60:
		return 8, colorGreen
	case rssi >= -67:
		return 7, colorCyan
	case rssi >= -75:
		return 6, colorCyan
	case rssi >= -80:
		return 5, colorYellow
	case rssi >= -85:
		return 4, colorYellow
	case rssi >= -90:
		return 3, colorOrange
	case rssi >= -95:
		return 2, colorOrange
	case rssi >= -100:
		return 1, colorRed
	default:
		return 0, colorRed
	}
}

func barString(n int) string {
	return strings.Repeat("█", n) + strings.Repeat("░", 10-n)
}

// since renders the age of t in whole seconds or minutes.
func since(now, t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	default:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	}
}

func clock(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("15:04:05")
}

func displayName(name string) string {
	if name == "" {
		return "<unnamed>"
	}
	return name
}
