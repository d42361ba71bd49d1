package synth

import (
	"math"
)

const maxUnison = 8

const twoPi = 2.0 * math.Pi

// velocity * 0.25 bounds the worst case of a full harmonic stack summing in
// phase, so eight voices stay clear of clipping before the master gain.
const voiceNormalization = 0.25

func noteToFreq(note int) float64 {
	return 440.0 * math.Pow(2, float64(note-69)/12)
}

// blockParams is the per-block snapshot of everything a voice reads from
// Params. Snapshotting once keeps the render loop free of atomic loads.
type blockParams struct {
	oscRatio float64
	sawPhase float64
	sqrPhase float64

	filterCutoff  float64
	filterBoost   float64
	filterPhase   float64
	filterStretch float64

	waveMix      float64
	waveEnvelope *[maxHarmonics]float64

	unisonCount  int
	unisonDetune float64
	stereoWidth  float64

	envAttack  float64
	envDecay   float64
	envSustain float64
	envRelease float64
}

// snapshot reads and range-clamps every field. Out-of-range values must
// never reach the math below (NaN/Inf or table overruns), so they are
// clamped here rather than trusted.
func (b *blockParams) snapshot(p *Params) {
	b.oscRatio = clamp(p.OscRatio(), 0, 1)
	b.sawPhase = p.SawPhase()
	b.sqrPhase = p.SqrPhase()
	b.filterCutoff = clamp(p.FilterCutoff(), 1, maxHarmonics)
	b.filterBoost = clamp(p.FilterBoost(), 0, 24)
	b.filterPhase = p.FilterPhase()
	b.filterStretch = clamp(p.FilterStretch(), 0.5, 2.0)
	b.waveMix = clamp(p.WaveMix(), 0, 1)
	b.waveEnvelope = p.WaveEnvelope()
	b.unisonCount = p.UnisonCount()
	if b.unisonCount < 1 {
		b.unisonCount = 1
	}
	if b.unisonCount > maxUnison {
		b.unisonCount = maxUnison
	}
	b.unisonDetune = clamp(p.UnisonDetune(), 0, 100)
	b.stereoWidth = clamp(p.StereoWidth(), 0, 1)
	b.envAttack = p.EnvAttack()
	b.envDecay = p.EnvDecay()
	b.envSustain = p.EnvSustain()
	b.envRelease = p.EnvRelease()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// harmonicKey is the set of inputs the cached HarmonicSet depends on.
// The set is rebuilt only when one of these changes, never per sample.
type harmonicKey struct {
	oscRatio      float64
	sawPhase      float64
	sqrPhase      float64
	filterCutoff  float64
	filterBoost   float64
	filterPhase   float64
	filterStretch float64
	waveMix       float64
	waveEnvelope  *[maxHarmonics]float64
	freq          float64
}

// ----- Voice ----- //

// voice is the per-note oscillator and envelope state. A voice outlives at
// most one note occurrence: claimed by noteOn, returned to idle when the
// envelope finishes or on a forced note-off.
type voice struct {
	sampleRate float64

	note     int
	velocity float64
	freq     float64
	env      adsr

	harmonics HarmonicSet
	phases    [maxUnison][maxHarmonics]float64

	cacheKey harmonicKey
	cached   bool
}

func newVoice(sampleRate float64) *voice {
	v := &voice{}
	v.setSampleRate(sampleRate)
	return v
}

func (v *voice) setSampleRate(sampleRate float64) {
	v.sampleRate = sampleRate
	v.env.sampleRate = sampleRate
	v.cached = false
}

func (v *voice) active() bool {
	return v.env.active()
}

func (v *voice) noteOn(note int, velocity float64) {
	v.note = note
	v.velocity = clamp(velocity, 0, 1)
	v.freq = noteToFreq(note)
	for u := range v.phases {
		for n := range v.phases[u] {
			v.phases[u][n] = 0
		}
	}
	v.cached = false
	v.env.noteOn()
}

func (v *voice) noteOff(allowTailOff bool) {
	if allowTailOff {
		v.env.noteOff()
	} else {
		v.env.forceOff()
	}
}

// rebuildHarmonics recomputes the cached harmonic set if any input changed.
func (v *voice) rebuildHarmonics(bp *blockParams) {
	key := harmonicKey{
		oscRatio:      bp.oscRatio,
		sawPhase:      bp.sawPhase,
		sqrPhase:      bp.sqrPhase,
		filterCutoff:  bp.filterCutoff,
		filterBoost:   bp.filterBoost,
		filterPhase:   bp.filterPhase,
		filterStretch: bp.filterStretch,
		waveMix:       bp.waveMix,
		waveEnvelope:  bp.waveEnvelope,
		freq:          v.freq,
	}
	if v.cached && key == v.cacheKey {
		return
	}
	computeHarmonics(bp.oscRatio, bp.sawPhase, bp.sqrPhase, v.freq, v.sampleRate, &v.harmonics)
	applyCutoffFilter(&v.harmonics, bp.filterCutoff, bp.filterBoost, bp.filterPhase, bp.filterStretch, v.freq, v.sampleRate)
	applyImportedEnvelope(&v.harmonics, bp.waveEnvelope, bp.waveMix)
	v.cacheKey = key
	v.cached = true
}

// render adds this voice's contribution for one block into left/right.
// An idle voice contributes nothing; a voice whose envelope finishes
// mid-block stops producing for the rest of the block.
func (v *voice) render(bp *blockParams, left, right []float64) {
	if !v.active() {
		return
	}
	v.env.setParams(bp.envAttack, bp.envDecay, bp.envSustain, bp.envRelease)
	v.rebuildHarmonics(bp)

	activeCount := v.harmonics.ActiveCount
	unison := bp.unisonCount

	// Per-harmonic base phase increment, stretched.
	var baseIncr [maxHarmonics]float64
	for n := 0; n < activeCount; n++ {
		stretchedN := math.Pow(float64(n+1), bp.filterStretch)
		baseIncr[n] = twoPi * v.freq * stretchedN / v.sampleRate
	}

	// Unison sub-voices spread symmetrically from -1 to +1.
	var detuneRatio, leftGain, rightGain [maxUnison]float64
	for u := 0; u < unison; u++ {
		spread := 0.0
		if unison > 1 {
			spread = -1.0 + 2.0*float64(u)/float64(unison-1)
		}
		cents := bp.unisonDetune * spread
		detuneRatio[u] = math.Pow(2, cents/1200)
		pan := clamp(0.5+bp.stereoWidth*spread*0.5, 0, 1)
		leftGain[u] = math.Cos(pan * math.Pi / 2)
		rightGain[u] = math.Sin(pan * math.Pi / 2)
	}
	subVoiceGain := 1.0 / math.Sqrt(float64(unison))

	for i := range left {
		l := 0.0
		r := 0.0
		for u := 0; u < unison; u++ {
			sum := 0.0
			ratio := detuneRatio[u]
			phases := &v.phases[u]
			for n := 0; n < activeCount; n++ {
				// Zero-amplitude harmonics skip the sum but still
				// advance phase, keeping continuity if the filter
				// re-opens them next block.
				if amp := v.harmonics.Amplitudes[n]; amp > 0 {
					sum += amp * sineLUT.lookup(phases[n]+v.harmonics.Phases[n])
				}
				phases[n] += baseIncr[n] * ratio
				if phases[n] >= twoPi {
					phases[n] -= twoPi
				}
			}
			l += sum * leftGain[u] * subVoiceGain
			r += sum * rightGain[u] * subVoiceGain
		}
		gain := v.env.step() * v.velocity * voiceNormalization
		left[i] += l * gain
		right[i] += r * gain
		if !v.env.active() {
			break
		}
	}
}
