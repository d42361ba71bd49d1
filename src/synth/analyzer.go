package synth

// ----- Waveform Analyzer ----- //

// analyzerFFTSize is the transform size used for spectral envelope
// extraction. Runs out of band on the control side; the render path only
// ever sees the finished snapshot published through Params.
const analyzerFFTSize = 4096

var analyzerFFT = NewFFT(analyzerFFTSize)

// AnalyzeSpectralEnvelope extracts a 256-bin normalized magnitude envelope
// from up to 4096 PCM samples: Hann window, 4096-point FFT, peak-1.0
// normalization, then bin-averaging of the half spectrum into the harmonic
// buckets. The result is suitable for Params.SetWaveEnvelope.
func AnalyzeSpectralEnvelope(samples []float64) *[maxHarmonics]float64 {
	frame := make([]float64, analyzerFFTSize)
	n := copy(frame, samples)
	Han(frame[:n])

	analyzerFFT.CalcAbs(frame)
	magnitudes := frame[:analyzerFFTSize/2]

	peak := 0.0
	for _, m := range magnitudes {
		if m > peak {
			peak = m
		}
	}
	if peak > 0 {
		for i := range magnitudes {
			magnitudes[i] /= peak
		}
	}

	envelope := &[maxHarmonics]float64{}
	binsPerHarmonic := float64(len(magnitudes)) / float64(maxHarmonics)
	for h := 0; h < maxHarmonics; h++ {
		start := int(float64(h) * binsPerHarmonic)
		end := int(float64(h+1) * binsPerHarmonic)
		if end > len(magnitudes) {
			end = len(magnitudes)
		}
		sum := 0.0
		for b := start; b < end; b++ {
			sum += magnitudes[b]
		}
		if end > start {
			envelope[h] = sum / float64(end-start)
		}
	}

	peak = 0.0
	for _, v := range envelope {
		if v > peak {
			peak = v
		}
	}
	if peak > 0 {
		for i := range envelope {
			envelope[i] /= peak
		}
	}
	return envelope
}
