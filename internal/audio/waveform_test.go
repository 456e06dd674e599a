package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV synthesizes a mono 16-bit PCM WAV from float samples in [-1,1].
func writeTestWAV(t *testing.T, path string, samples []float64, sampleRate int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create wav: %v", err)
	}
	defer f.Close()

	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, v := range samples {
		buf.Data[i] = int(v * 32767)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close encoder: %v", err)
	}
}

func sineWave(freq float64, seconds float64, sampleRate int, amplitude float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestDecodeWAV_Roundtrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tone.wav")

	writeTestWAV(t, path, sineWave(440, 1.0, 8000, 0.8), 8000)

	clip, err := DecodeWAV(path)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if clip.SampleRate != 8000 {
		t.Errorf("expected sample rate 8000, got %d", clip.SampleRate)
	}
	if len(clip.Samples) != 8000 {
		t.Errorf("expected 8000 samples, got %d", len(clip.Samples))
	}

	peak := 0.0
	for _, v := range clip.Samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak < 0.7 || peak > 0.9 {
		t.Errorf("expected peak near 0.8, got %f", peak)
	}
}

func TestDecodeWAV_RejectsGarbage(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "not-audio.wav")

	if err := os.WriteFile(path, []byte("definitely not riff data"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := DecodeWAV(path); err == nil {
		t.Error("expected error for non-WAV content")
	}
}

func TestSummarize_DurationAndEnvelope(t *testing.T) {
	sampleRate := 8000
	clip := &Clip{
		Samples:    sineWave(440, 2.0, sampleRate, 0.5),
		SampleRate: sampleRate,
	}

	sum := Summarize(clip)

	if math.Abs(sum.TotalDuration-2.0) > 1e-9 {
		t.Errorf("expected duration 2.0, got %f", sum.TotalDuration)
	}

	// 8000 Hz / 100 points-per-second = 80-sample windows, 200 points total.
	if len(sum.Envelope) != 200 {
		t.Errorf("expected 200 envelope points, got %d", len(sum.Envelope))
	}
	for i, v := range sum.Envelope {
		if v < 0 {
			t.Fatalf("envelope point %d negative: %f", i, v)
		}
	}
	if sum.Silent() {
		t.Error("a tone should not read as silent")
	}
}

func TestSummarize_NormalizesByPeak(t *testing.T) {
	clip := &Clip{
		Samples:    sineWave(440, 1.0, 8000, 0.1),
		SampleRate: 8000,
	}

	sum := Summarize(clip)

	// After peak normalization the loudest envelope window approaches 1.
	max := 0.0
	for _, v := range sum.Envelope {
		if v > max {
			max = v
		}
	}
	if max < 0.99 {
		t.Errorf("expected normalized envelope peak near 1.0, got %f", max)
	}
}

func TestSummarize_SilentRecording(t *testing.T) {
	clip := &Clip{
		Samples:    make([]float64, 5*8000),
		SampleRate: 8000,
	}

	sum := Summarize(clip)

	if math.Abs(sum.TotalDuration-5.0) > 1e-9 {
		t.Errorf("expected duration 5.0, got %f", sum.TotalDuration)
	}
	if !sum.Silent() {
		t.Error("all-zero recording must read as silent")
	}
}

func TestSummarize_EmptyRecording(t *testing.T) {
	clip := &Clip{Samples: nil, SampleRate: 8000}

	sum := Summarize(clip)

	if sum.TotalDuration != 0 {
		t.Errorf("expected zero duration, got %f", sum.TotalDuration)
	}
	if !sum.Silent() {
		t.Error("empty recording must read as silent")
	}
	if len(sum.Envelope) != 0 {
		t.Errorf("expected empty envelope, got %d points", len(sum.Envelope))
	}
}

func TestSummarize_LowSampleRateWindowFloor(t *testing.T) {
	// Below 100 Hz the envelope window clamps to a single sample.
	clip := &Clip{
		Samples:    []float64{0.1, 0.2, 0.3},
		SampleRate: 50,
	}

	sum := Summarize(clip)

	if len(sum.Envelope) != 3 {
		t.Errorf("expected one envelope point per sample, got %d", len(sum.Envelope))
	}
}

func TestActiveSpans_FindsLoudBurst(t *testing.T) {
	sampleRate := 8000
	quiet := sineWave(440, 2.0, sampleRate, 0.001)
	burst := sineWave(440, 1.0, sampleRate, 1.0)
	tail := sineWave(440, 2.0, sampleRate, 0.001)

	samples := append(append(quiet, burst...), tail...)
	sum := Summarize(&Clip{Samples: samples, SampleRate: sampleRate})

	spans, threshold := ActiveSpans(sum)

	if threshold > thresholdCeilingDB {
		t.Errorf("threshold should sit below the ceiling, got %f", threshold)
	}
	if len(spans) != 1 {
		t.Fatalf("expected a single active span, got %v", spans)
	}
	// The burst occupies seconds 2..3; allow an analysis frame of slack on
	// each side.
	if spans[0].Start > 2.2 || spans[0].Start < 1.7 {
		t.Errorf("span start %f not near 2.0", spans[0].Start)
	}
	if spans[0].End < 2.8 || spans[0].End > 3.2 {
		t.Errorf("span end %f not near 3.0", spans[0].End)
	}
}

func TestActiveSpans_LoudThroughoutUsesFallbackThreshold(t *testing.T) {
	// A recording that is loud end to end defeats the adaptive estimate; the
	// empirical fallback threshold is forced and everything reads active.
	sampleRate := 8000
	sum := Summarize(&Clip{
		Samples:    sineWave(440, 3.0, sampleRate, 0.9),
		SampleRate: sampleRate,
	})

	spans, threshold := ActiveSpans(sum)

	if threshold != thresholdFallbackDB {
		t.Errorf("expected fallback threshold %f, got %f", thresholdFallbackDB, threshold)
	}
	if len(spans) == 0 {
		t.Fatal("expected at least one active span")
	}
}

func TestActiveSpans_SilentInput(t *testing.T) {
	sum := Summarize(&Clip{Samples: make([]float64, 8000), SampleRate: 8000})

	spans, _ := ActiveSpans(sum)
	if len(spans) != 0 {
		t.Errorf("silent input should yield no spans, got %v", spans)
	}
}
