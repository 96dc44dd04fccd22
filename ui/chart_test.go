package ui

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"bleproximity/history"
	"bleproximity/proximity"
)

func TestRenderChartEmpty(t *testing.T) {
	now := time.Now()
	c := renderChart(nil, now, 5*time.Minute, 20)

	assert.Zero(t, c.peak)
	for _, cat := range proximity.Categories() {
		assert.Equal(t, strings.Repeat(" ", 20), c.series[cat])
	}
	assert.Equal(t, 20, utf8.RuneCountInString(c.axis))
}

func TestRenderChartScalesToPeak(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	points := []history.Snapshot{
		{Timestamp: now.Add(-5 * time.Minute), Near: 0, Medium: 2, Far: 1},
		{Timestamp: now, Near: 7, Medium: 0, Far: 3},
	}
	c := renderChart(points, now, 5*time.Minute, 11)

	assert.Equal(t, 7, c.peak)
	near := []rune(c.series[proximity.Near])
	assert.Equal(t, '▁', near[0])
	assert.Equal(t, '█', near[10])
	assert.Equal(t, ' ', near[5])

	medium := []rune(c.series[proximity.Medium])
	assert.Equal(t, '▃', medium[0])
	assert.Equal(t, '▁', medium[10])
}

func TestRenderChartDropsExpiredPoints(t *testing.T) {
	now := time.Now()
	points := []history.Snapshot{{Timestamp: now.Add(-10 * time.Minute), Near: 9}}
	c := renderChart(points, now, 5*time.Minute, 10)
	assert.Zero(t, c.peak)
}

func TestRenderChartNewestWinsColumn(t *testing.T) {
	now := time.Now()
	points := []history.Snapshot{
		{Timestamp: now.Add(-time.Second), Far: 8},
		{Timestamp: now, Far: 4},
	}
	c := renderChart(points, now, 5*time.Minute, 10)
	assert.Equal(t, 4, c.peak)
	far := []rune(c.series[proximity.Far])
	assert.Equal(t, '█', far[9])
}

func TestAxisLine(t *testing.T) {
	line := axisLine(30, 5*time.Minute)
	assert.True(t, strings.HasPrefix(line, "-5m"))
	assert.True(t, strings.HasSuffix(line, "now"))
	assert.Contains(t, line, "-2m30s")
	assert.Equal(t, 30, utf8.RuneCountInString(line))
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "-5m", ago(5*time.Minute))
	assert.Equal(t, "-2m30s", ago(150*time.Second))
	assert.Equal(t, "-45s", ago(45*time.Second))
}
