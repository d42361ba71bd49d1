package synth

import (
	"math"
)

// ----- Sine Table ----- //

const sineTableSize = 4096

// sineTable is the only trigonometric primitive used while rendering.
// 4096 points with linear interpolation stays below the 16-bit
// quantization floor, which is plenty for additive synthesis.
type sineTable struct {
	values [sineTableSize + 1]float64 // +1 guard entry for interpolation at the wrap
}

// built before any render call; no lazy initialization on the audio thread
var sineLUT = newSineTable()

func newSineTable() *sineTable {
	t := &sineTable{}
	for i := 0; i <= sineTableSize; i++ {
		t.values[i] = math.Sin(2.0 * math.Pi * float64(i) / float64(sineTableSize))
	}
	return t
}

// lookup returns sin(phase) for any phase in radians, negative included.
func (t *sineTable) lookup(phase float64) float64 {
	normalized := phase / (2.0 * math.Pi)
	normalized -= math.Floor(normalized) // wrap to [0, 1)
	index := normalized * sineTableSize
	i := int(index)
	frac := index - float64(i)
	// phases a rounding error below a multiple of 2π normalize to exactly
	// 1.0 and would index past the guard entry
	i &= sineTableSize - 1
	return t.values[i] + frac*(t.values[i+1]-t.values[i])
}
