// Package audio loads recordings and computes their waveform summaries.
package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ErrInvalidWAV indicates the file is not a readable WAV recording.
var ErrInvalidWAV = errors.New("invalid WAV file")

// Clip holds decoded audio as mono float samples in [-1, 1] at the file's
// native sample rate. No resampling is performed.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// DecodeWAV reads a WAV file and returns its first channel as float samples.
// Multi-channel recordings are reduced by taking channel one; practice
// recordings are effectively mono and the metrics only need one channel.
func DecodeWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM data: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, ErrInvalidWAV
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, float64(buf.Data[i])/scale)
	}

	return &Clip{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
	}, nil
}
