package store

import (
	"time"

	"github.com/edvall/sonata/internal/metrics"
)

// Session is one persisted practice event derived from a single recording.
// The fingerprint is the content hash of the source file and is the record's
// identity: two files with identical bytes are the same session regardless
// of filename.
type Session struct {
	Fingerprint    string             `json:"fingerprint"`
	StartTime      time.Time          `json:"start_time"`
	SourceFilename string             `json:"source_filename"`
	TotalDuration  float64            `json:"total_duration"`
	ActiveDuration float64            `json:"active_duration"`
	Efficiency     float64            `json:"efficiency"`
	Keystrokes     int                `json:"keystrokes"`
	Waveform       []float64          `json:"waveform"`
	Intervals      []metrics.Interval `json:"intervals"`

	// Artifact is the transcription artifact filename within the artifact
	// directory; empty when transcription failed for this session.
	Artifact string `json:"artifact,omitempty"`
}
