package synth

import (
	"encoding/json"
	"log"
	"math"
	"strconv"
	"sync/atomic"
)

// ----- Atomic Cell ----- //

// atomicFloat is a lock-free single-writer cell. The control side stores,
// the audio thread loads; a render pass sees either the pre- or post-update
// value and never blocks.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

func (f *atomicFloat) load() float64 {
	return math.Float64frombits(f.bits.Load())
}

// ----- Params ----- //

// Params is the configuration shared by every voice. All fields are read
// once per rendered block; writes come from the control/UI context.
type Params struct {
	oscRatio atomicFloat // 0=square, 1=saw
	sawPhase atomicFloat // radians
	sqrPhase atomicFloat // radians

	filterCutoff  atomicFloat // harmonic number 1..256
	filterBoost   atomicFloat // dB 0..24
	filterPhase   atomicFloat // radians
	filterStretch atomicFloat // 0.5..2.0

	waveMix      atomicFloat // 0..1
	waveEnvelope atomic.Pointer[[maxHarmonics]float64]

	unisonCount  atomic.Int32 // 1..8
	unisonDetune atomicFloat  // cents 0..100
	stereoWidth  atomicFloat  // 0..1

	envAttack  atomicFloat // sec
	envDecay   atomicFloat // sec
	envSustain atomicFloat // 0..1
	envRelease atomicFloat // sec

	masterGain atomicFloat // dB -60..6
}

// NewParams returns a Params with the synth's default patch.
func NewParams() *Params {
	p := &Params{}
	p.oscRatio.store(0.5)
	p.filterCutoff.store(128)
	p.filterStretch.store(1.0)
	p.unisonCount.Store(1)
	p.unisonDetune.store(10)
	p.stereoWidth.store(0.5)
	p.envAttack.store(0.01)
	p.envDecay.store(0.1)
	p.envSustain.store(0.8)
	p.envRelease.store(0.3)
	return p
}

func (p *Params) OscRatio() float64     { return p.oscRatio.load() }
func (p *Params) SetOscRatio(v float64) { p.oscRatio.store(v) }
func (p *Params) SawPhase() float64     { return p.sawPhase.load() }
func (p *Params) SetSawPhase(v float64) { p.sawPhase.store(v) }
func (p *Params) SqrPhase() float64     { return p.sqrPhase.load() }
func (p *Params) SetSqrPhase(v float64) { p.sqrPhase.store(v) }

func (p *Params) FilterCutoff() float64      { return p.filterCutoff.load() }
func (p *Params) SetFilterCutoff(v float64)  { p.filterCutoff.store(v) }
func (p *Params) FilterBoost() float64       { return p.filterBoost.load() }
func (p *Params) SetFilterBoost(v float64)   { p.filterBoost.store(v) }
func (p *Params) FilterPhase() float64       { return p.filterPhase.load() }
func (p *Params) SetFilterPhase(v float64)   { p.filterPhase.store(v) }
func (p *Params) FilterStretch() float64     { return p.filterStretch.load() }
func (p *Params) SetFilterStretch(v float64) { p.filterStretch.store(v) }

func (p *Params) WaveMix() float64     { return p.waveMix.load() }
func (p *Params) SetWaveMix(v float64) { p.waveMix.store(v) }

// SetWaveEnvelope publishes an imported spectral envelope as an immutable
// snapshot. The caller must not modify the array after passing it in.
func (p *Params) SetWaveEnvelope(envelope *[maxHarmonics]float64) {
	p.waveEnvelope.Store(envelope)
}

// WaveEnvelope returns the current spectral envelope snapshot, or nil.
func (p *Params) WaveEnvelope() *[maxHarmonics]float64 {
	return p.waveEnvelope.Load()
}

func (p *Params) UnisonCount() int       { return int(p.unisonCount.Load()) }
func (p *Params) SetUnisonCount(v int)   { p.unisonCount.Store(int32(v)) }
func (p *Params) UnisonDetune() float64  { return p.unisonDetune.load() }
func (p *Params) SetUnisonDetune(v float64) {
	p.unisonDetune.store(v)
}
func (p *Params) StereoWidth() float64     { return p.stereoWidth.load() }
func (p *Params) SetStereoWidth(v float64) { p.stereoWidth.store(v) }

func (p *Params) EnvAttack() float64      { return p.envAttack.load() }
func (p *Params) SetEnvAttack(v float64)  { p.envAttack.store(v) }
func (p *Params) EnvDecay() float64       { return p.envDecay.load() }
func (p *Params) SetEnvDecay(v float64)   { p.envDecay.store(v) }
func (p *Params) EnvSustain() float64     { return p.envSustain.load() }
func (p *Params) SetEnvSustain(v float64) { p.envSustain.store(v) }
func (p *Params) EnvRelease() float64     { return p.envRelease.load() }
func (p *Params) SetEnvRelease(v float64) { p.envRelease.store(v) }

func (p *Params) MasterGain() float64     { return p.masterGain.load() }
func (p *Params) SetMasterGain(v float64) { p.masterGain.store(v) }

// ----- IPC ----- //

func (p *Params) set(section string, key string, value string) error {
	switch section {
	case "osc":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		switch key {
		case "ratio":
			p.SetOscRatio(v)
		case "saw_phase":
			p.SetSawPhase(v)
		case "sqr_phase":
			p.SetSqrPhase(v)
		}
	case "filter":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		switch key {
		case "cutoff":
			p.SetFilterCutoff(v)
		case "boost":
			p.SetFilterBoost(v)
		case "phase":
			p.SetFilterPhase(v)
		case "stretch":
			p.SetFilterStretch(v)
		}
	case "wave":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		switch key {
		case "mix":
			p.SetWaveMix(v)
		}
	case "unison":
		switch key {
		case "count":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			p.SetUnisonCount(int(v))
		case "detune":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return err
			}
			p.SetUnisonDetune(v)
		case "width":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return err
			}
			p.SetStereoWidth(v)
		}
	case "adsr":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		switch key {
		case "attack":
			p.SetEnvAttack(v)
		case "decay":
			p.SetEnvDecay(v)
		case "sustain":
			p.SetEnvSustain(v)
		case "release":
			p.SetEnvRelease(v)
		}
	case "master":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		switch key {
		case "gain":
			p.SetMasterGain(v)
		}
	}
	return nil
}

// ----- JSON ----- //

type oscJSON struct {
	Ratio    float64 `json:"ratio"`
	SawPhase float64 `json:"sawPhase"`
	SqrPhase float64 `json:"sqrPhase"`
}
type filterJSON struct {
	Cutoff  float64 `json:"cutoff"`
	Boost   float64 `json:"boost"`
	Phase   float64 `json:"phase"`
	Stretch float64 `json:"stretch"`
}
type unisonJSON struct {
	Count  int     `json:"count"`
	Detune float64 `json:"detune"`
	Width  float64 `json:"width"`
}
type adsrJSON struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}
type paramsJSON struct {
	Osc        oscJSON    `json:"osc"`
	Filter     filterJSON `json:"filter"`
	WaveMix    float64    `json:"waveMix"`
	Unison     unisonJSON `json:"unison"`
	Adsr       adsrJSON   `json:"adsr"`
	MasterGain float64    `json:"masterGain"`
}

func (p *Params) applyJSON(data json.RawMessage) {
	var j paramsJSON
	err := json.Unmarshal(data, &j)
	if err != nil {
		log.Println("failed to apply JSON to params")
		return
	}
	p.SetOscRatio(j.Osc.Ratio)
	p.SetSawPhase(j.Osc.SawPhase)
	p.SetSqrPhase(j.Osc.SqrPhase)
	p.SetFilterCutoff(j.Filter.Cutoff)
	p.SetFilterBoost(j.Filter.Boost)
	p.SetFilterPhase(j.Filter.Phase)
	p.SetFilterStretch(j.Filter.Stretch)
	p.SetWaveMix(j.WaveMix)
	p.SetUnisonCount(j.Unison.Count)
	p.SetUnisonDetune(j.Unison.Detune)
	p.SetStereoWidth(j.Unison.Width)
	p.SetEnvAttack(j.Adsr.Attack)
	p.SetEnvDecay(j.Adsr.Decay)
	p.SetEnvSustain(j.Adsr.Sustain)
	p.SetEnvRelease(j.Adsr.Release)
	p.SetMasterGain(j.MasterGain)
}

func (p *Params) toJSON() json.RawMessage {
	return toRawMessage(&paramsJSON{
		Osc: oscJSON{
			Ratio:    p.OscRatio(),
			SawPhase: p.SawPhase(),
			SqrPhase: p.SqrPhase(),
		},
		Filter: filterJSON{
			Cutoff:  p.FilterCutoff(),
			Boost:   p.FilterBoost(),
			Phase:   p.FilterPhase(),
			Stretch: p.FilterStretch(),
		},
		WaveMix: p.WaveMix(),
		Unison: unisonJSON{
			Count:  p.UnisonCount(),
			Detune: p.UnisonDetune(),
			Width:  p.StereoWidth(),
		},
		Adsr: adsrJSON{
			Attack:  p.EnvAttack(),
			Decay:   p.EnvDecay(),
			Sustain: p.EnvSustain(),
			Release: p.EnvRelease(),
		},
		MasterGain: p.MasterGain(),
	})
}
