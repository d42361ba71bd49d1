package synth

import (
	"math"
)

// maxPolyphony is the fixed voice pool size.
const maxPolyphony = 8

// previewFreq is the reference fundamental used for the parameter-only
// harmonic preview when no note is sounding.
const previewFreq = 440.0

// ----- Note Events ----- //

const (
	eventNoteOn = iota
	eventNoteOff
	eventNoteCut // note-off without release tail
)

type noteEvent struct {
	offset   int // sample offset within the block
	kind     int
	note     int
	velocity float64
}

// ----- Engine ----- //

// Engine owns the fixed voice pool, routes note events, mixes voice output
// and applies the master gain. One Params instance is shared by reference
// across all voices.
type Engine struct {
	params     *Params
	voices     [maxPolyphony]*voice
	sampleRate float64

	bp      blockParams
	preview HarmonicSet
}

func NewEngine(params *Params, sampleRate float64) *Engine {
	e := &Engine{
		params:     params,
		sampleRate: sampleRate,
	}
	for i := range e.voices {
		e.voices[i] = newVoice(sampleRate)
	}
	return e
}

func (e *Engine) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
	for _, v := range e.voices {
		v.setSampleRate(sampleRate)
	}
}

// NoteOn claims a voice for the note: a voice already sounding the same
// note is retriggered, otherwise the first idle voice is used, otherwise
// the voice closest to silence is stolen.
func (e *Engine) NoteOn(note int, velocity float64) {
	if v := e.findVoice(note); v != nil {
		v.noteOn(note, velocity)
		return
	}
	for _, v := range e.voices {
		if !v.active() {
			v.noteOn(note, velocity)
			return
		}
	}
	e.stealVoice().noteOn(note, velocity)
}

// NoteOff releases whichever voice currently holds the note. With
// allowTailOff the voice enters its release stage; without it the voice is
// silenced immediately.
func (e *Engine) NoteOff(note int, allowTailOff bool) {
	if v := e.findVoice(note); v != nil {
		v.noteOff(allowTailOff)
	}
}

func (e *Engine) findVoice(note int) *voice {
	for _, v := range e.voices {
		if v.active() && v.note == note {
			return v
		}
	}
	return nil
}

// stealVoice prefers a releasing voice, then the quietest one, so the
// steal is as close to inaudible as the pool allows.
func (e *Engine) stealVoice() *voice {
	best := e.voices[0]
	for _, v := range e.voices[1:] {
		vReleasing := v.env.stage == stageRelease
		bestReleasing := best.env.stage == stageRelease
		if vReleasing != bestReleasing {
			if vReleasing {
				best = v
			}
			continue
		}
		if v.env.value < best.env.value {
			best = v
		}
	}
	return best
}

// Render fills one block. The output buffers are fully overwritten, voices
// mix additively, and the master gain is applied to the sum.
func (e *Engine) Render(left, right []float64) {
	e.RenderEvents(nil, left, right)
}

// RenderEvents renders a block dispatching note events at their sample
// offsets. Events must be ordered by offset. No allocation, locking or
// blocking happens on this path.
func (e *Engine) RenderEvents(events []noteEvent, left, right []float64) {
	for i := range left {
		left[i] = 0
		right[i] = 0
	}
	e.bp.snapshot(e.params)

	pos := 0
	for _, ev := range events {
		offset := ev.offset
		if offset < pos {
			offset = pos
		}
		if offset > len(left) {
			offset = len(left)
		}
		if offset > pos {
			e.renderSegment(left[pos:offset], right[pos:offset])
			pos = offset
		}
		e.dispatch(ev)
	}
	if pos < len(left) {
		e.renderSegment(left[pos:], right[pos:])
	}

	masterGain := math.Pow(10, clamp(e.params.MasterGain(), -60, 6)/20)
	for i := range left {
		left[i] *= masterGain
		right[i] *= masterGain
	}
}

func (e *Engine) renderSegment(left, right []float64) {
	for _, v := range e.voices {
		v.render(&e.bp, left, right)
	}
}

func (e *Engine) dispatch(ev noteEvent) {
	switch ev.kind {
	case eventNoteOn:
		e.NoteOn(ev.note, ev.velocity)
	case eventNoteOff:
		e.NoteOff(ev.note, true)
	case eventNoteCut:
		e.NoteOff(ev.note, false)
	}
}

// ActiveHarmonics returns the harmonic set of the first sounding voice for
// visualization, or nil when the engine is silent. The returned set is
// read-only and valid until that voice's next render.
func (e *Engine) ActiveHarmonics() *HarmonicSet {
	for _, v := range e.voices {
		if v.active() {
			return &v.harmonics
		}
	}
	return nil
}

// PreviewHarmonics computes the harmonic set the current parameters would
// produce at a reference frequency, for display while no note is active.
// No voice state is involved.
func (e *Engine) PreviewHarmonics() *HarmonicSet {
	// local snapshot: this runs on the control side, e.bp belongs to
	// the render path
	var bp blockParams
	bp.snapshot(e.params)
	computeHarmonics(bp.oscRatio, bp.sawPhase, bp.sqrPhase, previewFreq, e.sampleRate, &e.preview)
	applyCutoffFilter(&e.preview, bp.filterCutoff, bp.filterBoost, bp.filterPhase, bp.filterStretch, previewFreq, e.sampleRate)
	applyImportedEnvelope(&e.preview, bp.waveEnvelope, bp.waveMix)
	return &e.preview
}
