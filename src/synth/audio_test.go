package synth

import (
	"testing"
	"time"
)

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("expected no error, but got: %v", err)
	}
}

func TestAudioSetCommands(t *testing.T) {
	audio := newAudioWithoutDevice()
	defer audio.Close()
	expectNoError(t, audio.update([]string{"set", "osc", "ratio", "1.0"}))
	expectNoError(t, audio.update([]string{"set", "filter", "cutoff", "64"}))
	expectNoError(t, audio.update([]string{"set", "unison", "count", "4"}))
	expectNoError(t, audio.update([]string{"set", "adsr", "attack", "0.02"}))
	expectNoError(t, audio.update([]string{"set", "master", "gain", "-6"}))
	expectNearlyEqual(t, audio.params.OscRatio(), 1.0)
	expectNearlyEqual(t, audio.params.FilterCutoff(), 64)
	expectEqual(t, audio.params.UnisonCount(), 4)
	expectNearlyEqual(t, audio.params.EnvAttack(), 0.02)
	expectNearlyEqual(t, audio.params.MasterGain(), -6)
	expectEqual(t, audio.Changes.Has("data"), true)
}

func TestAudioRejectsUnknownCommand(t *testing.T) {
	audio := newAudioWithoutDevice()
	defer audio.Close()
	if audio.update([]string{"bogus"}) == nil {
		t.Errorf("expected an error for an unknown command")
	}
	if audio.update([]string{"set", "osc", "ratio"}) == nil {
		t.Errorf("expected an error for a malformed set command")
	}
}

func TestAudioReadRendersNotes(t *testing.T) {
	audio := newAudioWithoutDevice()
	defer audio.Close()
	buf := make([]byte, bufferSizeInBytes)

	n, err := audio.Read(buf)
	expectNoError(t, err)
	expectEqual(t, n, bufferSizeInBytes)
	for _, b := range buf {
		if b != 0 {
			t.Fatal("expected silence before any note")
		}
	}

	expectNoError(t, audio.update([]string{"note_on", "69"}))
	_, err = audio.Read(buf)
	expectNoError(t, err)
	_, err = audio.Read(buf)
	expectNoError(t, err)
	nonZero := false
	for _, b := range buf {
		if b != 0 {
			nonZero = true
			break
		}
	}
	expectEqual(t, nonZero, true)
}

func TestAudioMidiEvents(t *testing.T) {
	audio := newAudioWithoutDevice()
	defer audio.Close()
	audio.AddMidiEvent([]byte{0x90, 69, 100})
	buf := make([]byte, bufferSizeInBytes)
	_, err := audio.Read(buf)
	expectNoError(t, err)
	expectEqual(t, audio.engine.findVoice(69) != nil, true)

	audio.AddMidiEvent([]byte{0x80, 69, 0})
	time.Sleep(time.Millisecond)
	_, err = audio.Read(buf)
	expectNoError(t, err)
	expectEqual(t, audio.engine.findVoice(69).env.stage, stageRelease)
}

func TestAudioJSONRoundTrip(t *testing.T) {
	audio := newAudioWithoutDevice()
	defer audio.Close()
	audio.params.SetOscRatio(0.75)
	audio.params.SetFilterCutoff(33)
	audio.params.SetUnisonCount(5)
	data := audio.ToJSON()

	restored := newAudioWithoutDevice()
	defer restored.Close()
	restored.ApplyJSON(data)
	expectNearlyEqual(t, restored.params.OscRatio(), 0.75)
	expectNearlyEqual(t, restored.params.FilterCutoff(), 33)
	expectEqual(t, restored.params.UnisonCount(), 5)
}

func TestAudioSpectrumReport(t *testing.T) {
	audio := newAudioWithoutDevice()
	defer audio.Close()
	amplitudes, count := audio.GetSpectrum()
	// silent engine falls back to the 440Hz preview; floor(23999/440) = 54
	expectEqual(t, count, 54)
	expectEqual(t, len(amplitudes), count)
}

func TestAudioLoadWaveformPublishesEnvelope(t *testing.T) {
	audio := newAudioWithoutDevice()
	defer audio.Close()
	expectEqual(t, audio.params.WaveEnvelope() == nil, true)
	audio.LoadWaveform(make([]float64, 256))
	expectEqual(t, audio.params.WaveEnvelope() != nil, true)
}
