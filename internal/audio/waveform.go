package audio

import "math"

// Analysis frame geometry for the short-time energy curve and the envelope.
const (
	// envelopeRate is the target envelope resolution: one point per 10ms of
	// audio, giving ~100 points per second regardless of sample rate.
	envelopeRate = 100

	// rmsFrameLength and rmsHopLength define the short-time RMS frames used
	// for the silence check and the adaptive splitter.
	rmsFrameLength = 2048
	rmsHopLength   = 512

	// peakEpsilon keeps peak normalization defined on all-zero input.
	peakEpsilon = 1e-9
)

// Summary is the waveform-level description of a recording: its total
// duration, a compact amplitude envelope for visualization, and the
// short-time energy curve used for the silence short-circuit.
type Summary struct {
	TotalDuration float64
	Envelope      []float64
	RMS           []float64

	// normalized samples, retained for the adaptive splitter.
	samples    []float64
	sampleRate int
}

// Silent reports whether the recording carries no measurable signal. A
// silent recording skips transcription entirely and yields a zero-metrics
// session: invoking the external model on known-empty audio is wasted work.
func (s *Summary) Silent() bool {
	if len(s.RMS) == 0 {
		return true
	}
	for _, v := range s.RMS {
		if v > 0 {
			return false
		}
	}
	return true
}

// Summarize normalizes the clip amplitude by its peak and computes the total
// duration, the max-abs envelope and the short-time RMS curve.
func Summarize(clip *Clip) *Summary {
	normalized := normalize(clip.Samples)

	return &Summary{
		TotalDuration: float64(len(clip.Samples)) / float64(clip.SampleRate),
		Envelope:      envelope(normalized, clip.SampleRate),
		RMS:           rmsCurve(normalized),
		samples:       normalized,
		sampleRate:    clip.SampleRate,
	}
}

// normalize divides every sample by the peak absolute amplitude plus a small
// epsilon, so a silent recording maps to zeros instead of dividing by zero.
func normalize(samples []float64) []float64 {
	peak := 0.0
	for _, v := range samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	out := make([]float64, len(samples))
	denom := peak + peakEpsilon
	for i, v := range samples {
		out[i] = v / denom
	}
	return out
}

// envelope partitions the signal into fixed non-overlapping windows sized to
// yield ~envelopeRate points per second and emits the maximum absolute
// amplitude per window. The result is a finite, precomputed visual summary,
// recomputed fresh on every analysis.
func envelope(samples []float64, sampleRate int) []float64 {
	window := sampleRate / envelopeRate
	if window < 1 {
		window = 1
	}

	out := make([]float64, 0, len(samples)/window+1)
	for i := 0; i < len(samples); i += window {
		end := i + window
		if end > len(samples) {
			end = len(samples)
		}
		max := 0.0
		for _, v := range samples[i:end] {
			if a := math.Abs(v); a > max {
				max = a
			}
		}
		out = append(out, max)
	}
	return out
}

// rmsCurve computes root-mean-square energy over fixed analysis frames.
func rmsCurve(samples []float64) []float64 {
	if len(samples) == 0 {
		return nil
	}

	out := make([]float64, 0, len(samples)/rmsHopLength+1)
	for i := 0; i < len(samples); i += rmsHopLength {
		end := i + rmsFrameLength
		if end > len(samples) {
			end = len(samples)
		}
		sum := 0.0
		for _, v := range samples[i:end] {
			sum += v * v
		}
		out = append(out, math.Sqrt(sum/float64(end-i)))
	}
	return out
}
