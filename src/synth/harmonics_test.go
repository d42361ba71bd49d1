package synth

import (
	"testing"
)

func TestComputeHarmonicsPureSaw(t *testing.T) {
	var set HarmonicSet
	computeHarmonics(1.0, 0, 0, 100, 44100, &set)
	for n := 1; n <= set.ActiveCount; n++ {
		expectNearlyEqual(t, set.Amplitudes[n-1], 1.0/float64(n))
	}
}

func TestComputeHarmonicsPureSquare(t *testing.T) {
	var set HarmonicSet
	computeHarmonics(0.0, 0, 0, 100, 44100, &set)
	for n := 1; n <= set.ActiveCount; n++ {
		if n%2 == 1 {
			expectNearlyEqual(t, set.Amplitudes[n-1], 1.0/float64(n))
		} else {
			expectNearlyEqual(t, set.Amplitudes[n-1], 0)
		}
	}
}

func TestComputeHarmonicsBlend(t *testing.T) {
	var set HarmonicSet
	computeHarmonics(0.5, 0, 0, 100, 44100, &set)
	// odd harmonics get both series, even harmonics only half a saw
	expectNearlyEqual(t, set.Amplitudes[0], 1.0)
	expectNearlyEqual(t, set.Amplitudes[1], 0.25)
	expectNearlyEqual(t, set.Amplitudes[2], 1.0/3.0)
}

func TestComputeHarmonicsNyquistTruncation(t *testing.T) {
	var set HarmonicSet
	computeHarmonics(1.0, 0, 0, 1000, 44100, &set)
	// 22*1000 < 22050 <= 23*1000
	expectEqual(t, set.ActiveCount, 22)

	computeHarmonics(1.0, 0, 0, 440, 44100, &set)
	// floor(22049/440) = 50
	expectEqual(t, set.ActiveCount, 50)
}

func TestComputeHarmonicsLowFundamentalCapped(t *testing.T) {
	var set HarmonicSet
	computeHarmonics(1.0, 0, 0, 20, 44100, &set)
	expectEqual(t, set.ActiveCount, maxHarmonics)
}

func TestComputeHarmonicsPhaseRamp(t *testing.T) {
	var set HarmonicSet
	computeHarmonics(1.0, 0.1, 0.7, 100, 44100, &set)
	// pure saw: phase offset scales with harmonic number
	for n := 1; n <= 10; n++ {
		expectNearlyEqual(t, set.Phases[n-1], 0.1*float64(n))
	}

	computeHarmonics(0.0, 0.1, 0.7, 100, 44100, &set)
	// pure square: odd harmonics ramp on sqrPhase, even ones carry none
	expectNearlyEqual(t, set.Phases[0], 0.7)
	expectNearlyEqual(t, set.Phases[1], 0)
	expectNearlyEqual(t, set.Phases[2], 0.7*3)
}

func TestComputeHarmonicsPhaseBlendWeights(t *testing.T) {
	var set HarmonicSet
	computeHarmonics(0.5, 0.2, 0.6, 100, 44100, &set)
	// n=1: saw and square contribute equally at ratio 0.5
	expectNearlyEqual(t, set.Phases[0], (0.2+0.6)/2)
	// n=2: square is silent, pure saw phase remains
	expectNearlyEqual(t, set.Phases[1], 0.2*2)
}
