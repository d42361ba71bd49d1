package synth

// ----- Harmonic Series ----- //

// maxHarmonics is the size of every harmonic array in the engine.
const maxHarmonics = 256

// HarmonicSet holds the amplitude and phase of each harmonic of a note.
// Only the first ActiveCount entries are meaningful; harmonics at or above
// Nyquist are truncated, not zero-filled. A set is recomputed wholesale when
// oscillator or filter parameters change, never mutated incrementally.
type HarmonicSet struct {
	Amplitudes  [maxHarmonics]float64
	Phases      [maxHarmonics]float64
	ActiveCount int
}

// computeHarmonics fills set with the harmonic series of a saw/square blend.
//
// ratio blends the two series (0=square, 1=saw). Saw contributes 1/n at every
// harmonic; square contributes 1/n at odd harmonics only. The phase offset of
// each harmonic is the contribution-weighted blend of sawPhase and sqrPhase,
// scaled by the harmonic number so the parameter acts as a per-harmonic ramp.
func computeHarmonics(ratio, sawPhase, sqrPhase, freq, sampleRate float64, set *HarmonicSet) {
	nyquist := sampleRate * 0.5
	active := 0
	for n := 1; n <= maxHarmonics; n++ {
		if freq*float64(n) >= nyquist {
			break
		}
		sawAmp := 1.0 / float64(n)
		sqrAmp := 0.0
		if n%2 == 1 {
			sqrAmp = 1.0 / float64(n)
		}
		amp := ratio*sawAmp + (1.0-ratio)*sqrAmp

		phase := 0.0
		switch {
		case ratio > 0.0 && ratio < 1.0 && amp > 0.0:
			sawContrib := ratio * sawAmp
			sqrContrib := (1.0 - ratio) * sqrAmp
			if total := sawContrib + sqrContrib; total > 0.0 {
				phase = (sawContrib*sawPhase + sqrContrib*sqrPhase) / total
			}
		case ratio >= 1.0:
			phase = sawPhase
		default:
			if n%2 == 1 {
				phase = sqrPhase
			}
		}

		set.Amplitudes[n-1] = amp
		set.Phases[n-1] = phase * float64(n)
		active = n
	}
	set.ActiveCount = active
}
