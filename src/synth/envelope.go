package synth

import (
	"math"
)

// ----- ADSR ----- //

const (
	stageIdle = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

const envEndThreshold = 0.001

/*
	1 +     x
	  |    / \
	  |   /   \
	s +  /     x------x
	  | /              \
	  |/                \
	0 +-----+--+------+---
	  |a    |d |      |r |
*/
type adsr struct {
	sampleRate float64

	attack  float64 // sec
	decay   float64 // sec
	sustain float64 // 0-1
	release float64 // sec

	stage          int
	pos            int
	value          float64
	valueAtNoteOn  float64
	valueAtNoteOff float64
}

// setParams is called once per rendered block so live edits take effect
// promptly without paying the cost per sample.
func (a *adsr) setParams(attack, decay, sustain, release float64) {
	if sustain < 0 {
		sustain = 0
	}
	if sustain > 1 {
		sustain = 1
	}
	a.attack = attack
	a.decay = decay
	a.sustain = sustain
	a.release = release
}

func (a *adsr) noteOn() {
	a.stage = stageAttack
	a.pos = 0
	a.valueAtNoteOn = a.value
}

func (a *adsr) noteOff() {
	a.stage = stageRelease
	a.pos = 0
	a.valueAtNoteOff = a.value
}

// forceOff drops to silence immediately, discarding any release tail.
func (a *adsr) forceOff() {
	a.stage = stageIdle
	a.pos = 0
	a.value = 0
}

func (a *adsr) active() bool {
	return a.stage != stageIdle
}

// step advances the envelope one sample and returns the new level.
func (a *adsr) step() float64 {
	stageTime := float64(a.pos) / a.sampleRate
	switch a.stage {
	case stageAttack:
		if a.attack <= 0 || stageTime >= a.attack {
			a.stage = stageDecay
			a.pos = 0
			a.value = 1
		} else {
			t := stageTime / a.attack
			a.value = t + (1-t)*a.valueAtNoteOn
			a.pos++
		}
	case stageDecay:
		ended := false
		if a.decay <= 0 {
			ended = true
		} else {
			t := stageTime / a.decay
			a.value = setTargetAtTime(1, a.sustain, t)
			if math.Abs(a.value-a.sustain) < envEndThreshold {
				ended = true
			}
		}
		if ended {
			a.stage = stageSustain
			a.pos = 0
			a.value = a.sustain
		} else {
			a.pos++
		}
	case stageSustain:
		a.value = a.sustain
	case stageRelease:
		ended := false
		if a.release <= 0 {
			ended = true
		} else {
			t := stageTime / a.release
			a.value = setTargetAtTime(a.valueAtNoteOff, 0, t)
			if math.Abs(a.value) < envEndThreshold {
				ended = true
			}
		}
		if ended {
			a.stage = stageIdle
			a.pos = 0
			a.value = 0
		} else {
			a.pos++
		}
	default:
		a.value = 0
	}
	return a.value
}

// 63% closer to target when pos=1.0
func setTargetAtTime(initialValue float64, targetValue float64, pos float64) float64 {
	return targetValue + (initialValue-targetValue)*math.Exp(-pos)
}
