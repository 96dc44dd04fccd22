package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bleproximity/proximity"
)

func reading(id string, rssi int) DeviceReading {
	return DeviceReading{ID: id, RSSI: rssi, Category: proximity.Classify(float64(rssi))}
}

func newTestSession(ttl time.Duration) (*Session, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(ttl)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSessionUpdateReportsNewDevices(t *testing.T) {
	s, now := newTestSession(0)

	added := s.Update([]DeviceReading{reading("A", -60), reading("B", -80)})
	assert.ElementsMatch(t, []string{"A", "B"}, added)

	*now = now.Add(5 * time.Second)
	added = s.Update([]DeviceReading{reading("A", -62), reading("C", -90)})
	assert.Equal(t, []string{"C"}, added)
	assert.Equal(t, 3, s.Count())
}

func TestSessionTracksSignalRange(t *testing.T) {
	s, _ := newTestSession(0)
	for _, rssi := range []int{-70, -55, -90, -65} {
		s.Update([]DeviceReading{reading("A", rssi)})
	}

	d, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, -65, d.RSSI)
	assert.Equal(t, -90, d.MinRSSI)
	assert.Equal(t, -55, d.MaxRSSI)
	assert.Equal(t, []int{-70, -55, -90, -65}, d.RSSIHistory)
	assert.Equal(t, proximity.Near, d.Category)
}

func TestSessionHistoryIsBounded(t *testing.T) {
	s, _ := newTestSession(0)
	for i := 0; i < maxHistory+5; i++ {
		s.Update([]DeviceReading{reading("A", -50-i)})
	}
	d, _ := s.Get("A")
	assert.Len(t, d.RSSIHistory, maxHistory)
	assert.Equal(t, -50-(maxHistory+4), d.RSSIHistory[maxHistory-1])
}

func TestSessionKeepsKnownName(t *testing.T) {
	s, _ := newTestSession(0)
	r := reading("A", -60)
	r.Name = "Watch"
	s.Update([]DeviceReading{r})
	s.Update([]DeviceReading{reading("A", -61)})

	d, _ := s.Get("A")
	assert.Equal(t, "Watch", d.Name)
}

func TestSessionEvictsAfterTTL(t *testing.T) {
	s, now := newTestSession(time.Minute)
	s.Update([]DeviceReading{reading("A", -60), reading("B", -60)})

	*now = now.Add(45 * time.Second)
	s.Update([]DeviceReading{reading("B", -61)})
	assert.Equal(t, 2, s.Count())

	*now = now.Add(30 * time.Second)
	s.Update(nil)
	_, ok := s.Get("A")
	assert.False(t, ok)
	_, ok = s.Get("B")
	assert.True(t, ok)
}

func TestSessionDevicesOrder(t *testing.T) {
	s, now := newTestSession(0)
	s.Update([]DeviceReading{reading("stale", -40)})
	*now = now.Add(time.Second)
	s.Update([]DeviceReading{reading("b", -80), reading("a", -60), reading("c", -60)})

	var ids []string
	for _, d := range s.Devices() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "c", "b", "stale"}, ids)
}

func TestSessionGetReturnsCopy(t *testing.T) {
	s, _ := newTestSession(0)
	s.Update([]DeviceReading{reading("A", -60)})
	d, _ := s.Get("A")
	d.RSSIHistory[0] = 0

	again, _ := s.Get("A")
	assert.Equal(t, -60, again.RSSIHistory[0])
}

func TestSessionReset(t *testing.T) {
	s, _ := newTestSession(0)
	s.Update([]DeviceReading{reading("A", -60)})
	s.Reset()
	assert.Zero(t, s.Count())
}

func TestDeviceStateIsNew(t *testing.T) {
	first := time.Now()
	d := DeviceState{FirstSeen: first}
	assert.True(t, d.IsNew(first.Add(10*time.Second)))
	assert.False(t, d.IsNew(first.Add(newTimeout)))
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", Sparkline(nil))
	assert.Equal(t, "▁█", Sparkline([]int{-110, -10}))
	assert.Equal(t, "▁▄█", Sparkline([]int{-100, -60, -20}))
}
