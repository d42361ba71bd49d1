package synth

import (
	"testing"
)

func newTestADSR() *adsr {
	a := &adsr{sampleRate: 1000}
	a.setParams(0.1, 0.1, 0.5, 0.1)
	return a
}

func TestADSRStartsIdle(t *testing.T) {
	a := newTestADSR()
	expectEqual(t, a.active(), false)
	expectNearlyEqual(t, a.step(), 0)
}

func TestADSRAttackRampsToPeak(t *testing.T) {
	a := newTestADSR()
	a.noteOn()
	expectEqual(t, a.active(), true)
	last := -1.0
	for i := 0; i < 100; i++ {
		v := a.step()
		if v < last {
			t.Fatalf("attack must be non-decreasing, got %v after %v", v, last)
		}
		last = v
	}
	// one sample past the attack time the level is pinned at 1
	expectNearlyEqual(t, a.step(), 1)
	expectEqual(t, a.stage, stageDecay)
}

func TestADSRDecaySettlesOnSustain(t *testing.T) {
	a := newTestADSR()
	a.noteOn()
	for i := 0; i < 2000; i++ {
		a.step()
	}
	expectEqual(t, a.stage, stageSustain)
	expectNearlyEqual(t, a.step(), 0.5)
	// sustain holds indefinitely
	for i := 0; i < 1000; i++ {
		a.step()
	}
	expectNearlyEqual(t, a.value, 0.5)
}

func TestADSRReleaseReachesIdle(t *testing.T) {
	a := newTestADSR()
	a.noteOn()
	for i := 0; i < 2000; i++ {
		a.step()
	}
	a.noteOff()
	expectEqual(t, a.stage, stageRelease)
	for i := 0; i < 2000 && a.active(); i++ {
		a.step()
	}
	expectEqual(t, a.active(), false)
	expectNearlyEqual(t, a.value, 0)
}

func TestADSRForceOffIsImmediate(t *testing.T) {
	a := newTestADSR()
	a.noteOn()
	for i := 0; i < 50; i++ {
		a.step()
	}
	a.forceOff()
	expectEqual(t, a.active(), false)
	expectNearlyEqual(t, a.value, 0)
	expectNearlyEqual(t, a.step(), 0)
}

func TestADSRZeroAttackJumpsToPeak(t *testing.T) {
	a := &adsr{sampleRate: 1000}
	a.setParams(0, 0.1, 0.5, 0.1)
	a.noteOn()
	expectNearlyEqual(t, a.step(), 1)
}

func TestADSRRetrigger(t *testing.T) {
	a := newTestADSR()
	a.noteOn()
	for i := 0; i < 2000; i++ {
		a.step()
	}
	a.noteOff()
	for i := 0; i < 30; i++ {
		a.step()
	}
	mid := a.value
	a.noteOn()
	// retrigger attacks from the current level, no click back to zero
	v := a.step()
	if v < mid-0.01 {
		t.Fatalf("retrigger must ramp from %v, got %v", mid, v)
	}
}

func TestADSRSustainClamped(t *testing.T) {
	a := &adsr{sampleRate: 1000}
	a.setParams(0.01, 0.01, 1.5, 0.1)
	expectNearlyEqual(t, a.sustain, 1)
	a.setParams(0.01, 0.01, -0.5, 0.1)
	expectNearlyEqual(t, a.sustain, 0)
}
