package synth

import (
	"math"
	"testing"
)

func makeSawSet(freq, sampleRate float64) HarmonicSet {
	var set HarmonicSet
	computeHarmonics(1.0, 0, 0, freq, sampleRate, &set)
	return set
}

func TestCutoffFilterNoBoostIsLogisticOnly(t *testing.T) {
	set := makeSawSet(440, 44100)
	original := set
	applyCutoffFilter(&set, 256, 0, 0, 1.0, 440, 44100)
	for n := 1; n <= set.ActiveCount; n++ {
		idx := n - 1
		gain := 1.0 / (1.0 + math.Exp((float64(n)-256)/cutoffSmoothness))
		expectNearlyEqual(t, set.Amplitudes[idx], original.Amplitudes[idx]*gain)
	}
}

func TestCutoffFilterKeepsRetainedSetAtUnitStretch(t *testing.T) {
	set := makeSawSet(440, 44100)
	before := set.ActiveCount
	applyCutoffFilter(&set, 128, 0, 0, 1.0, 440, 44100)
	expectEqual(t, set.ActiveCount, before)
}

func TestCutoffFilterStretchRetruncates(t *testing.T) {
	set := makeSawSet(440, 44100)
	applyCutoffFilter(&set, 256, 0, 0, 2.0, 440, 44100)
	// n^2*440 >= 22050 at n=8 (64*440=28160), n=7 survives (49*440=21560)
	expectEqual(t, set.ActiveCount, 7)
	for n := 8; n <= 50; n++ {
		expectNearlyEqual(t, set.Amplitudes[n-1], 0)
	}
}

func TestCutoffFilterBoostPeaksAtCutoff(t *testing.T) {
	flat := makeSawSet(440, 44100)
	boosted := makeSawSet(440, 44100)
	applyCutoffFilter(&flat, 20, 0, 0, 1.0, 440, 44100)
	applyCutoffFilter(&boosted, 20, 12, 0, 1.0, 440, 44100)
	// at the cutoff harmonic the bump contributes the full linear boost
	boostLinear := math.Pow(10, 12.0/20.0)
	expectNearlyEqual(t, boosted.Amplitudes[19], flat.Amplitudes[19]*boostLinear)
	// far away the bump decays to nothing
	expectNearlyEqual(t, boosted.Amplitudes[0]/flat.Amplitudes[0], 1.0)
}

func TestCutoffFilterPhaseRotation(t *testing.T) {
	set := makeSawSet(440, 44100)
	applyCutoffFilter(&set, 128, 0, 0.25, 1.0, 440, 44100)
	for n := 1; n <= 10; n++ {
		expectNearlyEqual(t, set.Phases[n-1], 0.25*float64(n))
	}
}

func TestImportedEnvelopeMixZeroIsNoop(t *testing.T) {
	set := makeSawSet(440, 44100)
	original := set
	var envelope [maxHarmonics]float64
	for i := range envelope {
		envelope[i] = 0.5
	}
	applyImportedEnvelope(&set, &envelope, 0)
	if set != original {
		t.Errorf("mix=0 must leave the set bit-for-bit unchanged")
	}
}

func TestImportedEnvelopeFullWet(t *testing.T) {
	set := makeSawSet(440, 44100)
	original := set
	var envelope [maxHarmonics]float64
	for i := range envelope {
		envelope[i] = float64(i) / maxHarmonics
	}
	applyImportedEnvelope(&set, &envelope, 1)
	expectEqual(t, set.ActiveCount, original.ActiveCount)
	for n := 0; n < set.ActiveCount; n++ {
		expectNearlyEqual(t, set.Amplitudes[n], original.Amplitudes[n]*envelope[n])
	}
}

func TestImportedEnvelopeHalfMix(t *testing.T) {
	set := makeSawSet(440, 44100)
	original := set
	var envelope [maxHarmonics]float64 // all zero
	applyImportedEnvelope(&set, &envelope, 0.5)
	for n := 0; n < set.ActiveCount; n++ {
		expectNearlyEqual(t, set.Amplitudes[n], original.Amplitudes[n]*0.5)
	}
}

func TestImportedEnvelopeNilIsNoop(t *testing.T) {
	set := makeSawSet(440, 44100)
	original := set
	applyImportedEnvelope(&set, nil, 1)
	if set != original {
		t.Errorf("nil envelope must be a no-op")
	}
}
