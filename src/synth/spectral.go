package synth

import (
	"math"
)

// ----- Spectral Filter ----- //

const (
	cutoffSmoothness = 2.0 // sigmoid slope in harmonic numbers
	boostBellWidth   = 3.0 // gaussian bump width in harmonic numbers
)

// applyCutoffFilter shapes a harmonic set in place:
//   - stretch remaps harmonic n to frequency freq*n^stretch and re-truncates
//     at Nyquist (a stretched set can lose harmonics the series kept)
//   - cutoff is a logistic low-pass in the harmonic domain
//   - boostDb adds a gaussian resonance bump centered at the cutoff harmonic
//   - phaseRot rotates each harmonic's phase proportionally to n
func applyCutoffFilter(set *HarmonicSet, cutoff, boostDb, phaseRot, stretch, freq, sampleRate float64) {
	nyquist := sampleRate * 0.5
	boostLinear := math.Pow(10.0, boostDb/20.0)
	newActive := 0
	for n := 1; n <= set.ActiveCount; n++ {
		idx := n - 1
		stretchedFreq := freq * math.Pow(float64(n), stretch)
		if stretchedFreq >= nyquist {
			set.Amplitudes[idx] = 0.0
			continue
		}
		sigmoidGain := 1.0 / (1.0 + math.Exp((float64(n)-cutoff)/cutoffSmoothness))
		dist := float64(n) - cutoff
		bellGain := 1.0 + (boostLinear-1.0)*math.Exp(-0.5*dist*dist/(boostBellWidth*boostBellWidth))
		set.Amplitudes[idx] *= sigmoidGain * bellGain
		set.Phases[idx] += phaseRot * float64(n)
		newActive = n
	}
	set.ActiveCount = newActive
}

// applyImportedEnvelope cross-fades each harmonic's amplitude toward the
// amplitude multiplied by an imported spectral envelope. mix=0 is a strict
// no-op and ActiveCount is never altered.
func applyImportedEnvelope(set *HarmonicSet, envelope *[maxHarmonics]float64, mix float64) {
	if envelope == nil || mix <= 0.0 {
		return
	}
	if mix > 1.0 {
		mix = 1.0
	}
	for n := 0; n < set.ActiveCount; n++ {
		filtered := set.Amplitudes[n] * envelope[n]
		set.Amplitudes[n] = set.Amplitudes[n]*(1.0-mix) + filtered*mix
	}
}
