package proximity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		rssi float64
		want Category
	}{
		{-30, Near},
		{-74, Near},
		{-74.5, Near},
		{-75, Medium},
		{-80, Medium},
		{-85, Medium},
		{-85.5, Far},
		{-86, Far},
		{-100, Far},
		{-100.5, OutOfRange},
		{-101, OutOfRange},
		{-127, OutOfRange},
		{10, Near},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.rssi), "Classify(%v)", tt.rssi)
	}
}

func TestClassifyInvalid(t *testing.T) {
	assert.Equal(t, OutOfRange, Classify(math.NaN()))
	assert.Equal(t, OutOfRange, Classify(math.Inf(1)))
	assert.Equal(t, OutOfRange, Classify(math.Inf(-1)))
}

func TestClassifyOptional(t *testing.T) {
	assert.Equal(t, OutOfRange, ClassifyOptional(nil))

	v := -80
	assert.Equal(t, Medium, ClassifyOptional(&v))
}

func TestClassifyDeterministic(t *testing.T) {
	for rssi := -130; rssi <= 0; rssi++ {
		first := Classify(float64(rssi))
		assert.Equal(t, first, Classify(float64(rssi)))
	}
}

func TestTally(t *testing.T) {
	var tally Tally
	for _, c := range []Category{Near, Near, Medium, Far, OutOfRange} {
		tally.Add(c)
	}

	assert.Equal(t, Tally{Near: 2, Medium: 1, Far: 1}, tally)
	assert.Equal(t, 4, tally.Total())
	assert.Equal(t, 2, tally.Count(Near))
	assert.Equal(t, 0, tally.Count(OutOfRange))
}

func TestCategoryStrings(t *testing.T) {
	assert.Equal(t, "near", Near.String())
	assert.Equal(t, "out-of-range", OutOfRange.String())
	assert.Equal(t, "Medium", Medium.Label())
	assert.False(t, OutOfRange.InRange())
	assert.Equal(t, []Category{Near, Medium, Far}, Categories())
}
