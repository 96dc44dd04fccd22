package ui

import (
	"fmt"
	"strings"
	"time"

	"bleproximity/history"
	"bleproximity/proximity"
)

// chart is the text rendering of the retained history: one row of blocks
// per category, all scaled to the same peak, plus a time axis.
type chart struct {
	series map[proximity.Category]string
	axis   string
	peak   int
}

// renderChart lays points out over width columns spanning the retention
// window ending at now. Each column shows the newest snapshot that falls
// into it; columns without data are blank.
func renderChart(points []history.Snapshot, now time.Time, retention time.Duration, width int) chart {
	c := chart{series: make(map[proximity.Category]string, 3)}
	if width <= 0 || retention <= 0 {
		return c
	}

	cols := bucketize(points, now, retention, width)
	for _, p := range cols {
		if p == nil {
			continue
		}
		c.peak = max(c.peak, p.Near, p.Medium, p.Far)
	}

	for _, cat := range proximity.Categories() {
		row := make([]rune, width)
		for i, p := range cols {
			if p == nil {
				row[i] = ' '
				continue
			}
			row[i] = level(p.Tally().Count(cat), c.peak)
		}
		c.series[cat] = string(row)
	}
	c.axis = axisLine(width, retention)
	return c
}

func bucketize(points []history.Snapshot, now time.Time, retention time.Duration, width int) []*history.Snapshot {
	cols := make([]*history.Snapshot, width)
	for i := range points {
		age := now.Sub(points[i].Timestamp)
		if age < 0 {
			age = 0
		}
		if age > retention {
			continue
		}
		col := width - 1 - int(float64(width-1)*float64(age)/float64(retention))
		cols[col] = &points[i]
	}
	return cols
}

// level maps v in [0, peak] onto the eight block heights.
func level(v, peak int) rune {
	if peak <= 0 {
		return sparkBlocks[0]
	}
	return sparkBlocks[min(v*7/peak, 7)]
}

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// axisLine labels the oldest edge, the midpoint, and now.
func axisLine(width int, retention time.Duration) string {
	line := []rune(strings.Repeat(" ", width))
	put := func(at int, label string) {
		r := []rune(label)
		at = max(0, min(at, width-len(r)))
		for i, ch := range r {
			if at+i < width {
				line[at+i] = ch
			}
		}
	}

	put(0, ago(retention))
	mid := ago(retention / 2)
	put(width/2-len(mid)/2, mid)
	put(width-3, "now")
	return string(line)
}

// ago formats d as a negative offset such as "-5m" or "-2m30s".
func ago(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("-%dm", int(d/time.Minute))
	case d >= time.Minute:
		return fmt.Sprintf("-%dm%02ds", int(d/time.Minute), int(d%time.Minute/time.Second))
	default:
		return fmt.Sprintf("-%ds", int(d/time.Second))
	}
}
