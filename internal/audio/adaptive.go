package audio

import (
	"math"
	"sort"

	"github.com/edvall/sonata/internal/metrics"
)

// Adaptive threshold tuning for the waveform-based activity splitter. This
// splitter predates the transcription-derived metrics and is retained as a
// fallback computation for offline inspection; it is not the canonical
// source of active intervals.
const (
	// noiseFloorPercentile picks the reference noise level from the quiet
	// portion of the RMS distribution.
	noiseFloorPercentile = 0.25

	// noiseFloorMarginDB is added above the noise floor to form the
	// activity threshold.
	noiseFloorMarginDB = 15.0

	// thresholdCeilingDB / thresholdFallbackDB: when the adaptive threshold
	// lands above the ceiling the recording is loud throughout and the
	// adaptive estimate is meaningless, so an empirical piano activity
	// threshold is forced instead.
	thresholdCeilingDB  = -30.0
	thresholdFallbackDB = -45.0
)

// ActiveSpans estimates active playing intervals directly from the waveform
// using an adaptive RMS threshold. It returns the spans in seconds along
// with the threshold (in dB relative to peak RMS) that was applied.
func ActiveSpans(summary *Summary) ([]metrics.Interval, float64) {
	if summary.Silent() {
		return []metrics.Interval{}, thresholdFallbackDB
	}

	// RMS in dB relative to the curve's own peak, librosa-style.
	maxRMS := 0.0
	for _, v := range summary.RMS {
		if v > maxRMS {
			maxRMS = v
		}
	}
	db := make([]float64, len(summary.RMS))
	for i, v := range summary.RMS {
		db[i] = 20 * math.Log10(v/maxRMS+peakEpsilon)
	}

	threshold := percentile(db, noiseFloorPercentile) + noiseFloorMarginDB
	if threshold > thresholdCeilingDB {
		threshold = thresholdFallbackDB
	}

	spans := []metrics.Interval{}
	rate := float64(summary.sampleRate)
	total := float64(len(summary.samples))

	inSpan := false
	startFrame := 0
	for i, v := range db {
		active := v > threshold
		switch {
		case active && !inSpan:
			inSpan = true
			startFrame = i
		case !active && inSpan:
			inSpan = false
			spans = append(spans, frameSpan(startFrame, i, rate, total))
		}
	}
	if inSpan {
		spans = append(spans, frameSpan(startFrame, len(db), rate, total))
	}

	return spans, threshold
}

// frameSpan converts a half-open frame range into a second-based interval
// clamped to the signal length.
func frameSpan(start, end int, rate, totalSamples float64) metrics.Interval {
	startSample := float64(start * rmsHopLength)
	endSample := float64(end * rmsHopLength)
	if endSample > totalSamples {
		endSample = totalSamples
	}
	return metrics.Interval{
		Start: startSample / rate,
		End:   endSample / rate,
	}
}

func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
