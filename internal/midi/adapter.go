package midi

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/edvall/sonata/internal/metrics"
)

// ArtifactSuffix is appended by the transcription model to the source file
// stem when naming its output (e.g. take.wav -> take_basic_pitch.mid).
const ArtifactSuffix = "_basic_pitch.mid"

// Result is the explicit outcome of one transcription attempt. A failed
// transcription is a valid, expected outcome: the pipeline degrades the
// session to zero metrics instead of aborting it.
type Result struct {
	Events       []metrics.NoteEvent
	ArtifactName string
	Failed       bool
	Reason       string
}

// failed builds a failure Result with a human-readable reason.
func failed(format string, args ...any) Result {
	return Result{Failed: true, Reason: fmt.Sprintf(format, args...)}
}

// Transcriber runs the external transcription model as a subprocess. The
// model is expected to write a MIDI artifact at a deterministic path derived
// from the source filename; absence of that file after the run signals
// failure.
type Transcriber struct {
	command string
}

// NewTranscriber creates a Transcriber that invokes the given command as
// `command <output-dir> <audio-path>`.
func NewTranscriber(command string) *Transcriber {
	return &Transcriber{command: command}
}

// ArtifactName returns the deterministic artifact filename for a source
// recording path.
func ArtifactName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + ArtifactSuffix
}

// Transcribe runs the model on sourcePath, writing the artifact into
// outputDir, and decodes the artifact into note events. Any prior artifact
// at the derived path is removed first so a retry can never read stale
// results. All failure modes collapse into a failure Result.
func (t *Transcriber) Transcribe(ctx context.Context, sourcePath, outputDir string) Result {
	artifactName := ArtifactName(sourcePath)
	artifactPath := filepath.Join(outputDir, artifactName)

	if err := os.Remove(artifactPath); err != nil && !os.IsNotExist(err) {
		return failed("remove stale artifact: %v", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return failed("create output directory: %v", err)
	}

	cmd := exec.CommandContext(ctx, t.command, outputDir, sourcePath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return failed("transcription model failed: %v: %s", err, strings.TrimSpace(string(out)))
	}

	if _, err := os.Stat(artifactPath); err != nil {
		return failed("expected artifact missing: %s", artifactPath)
	}

	events, err := ReadNoteEvents(artifactPath)
	if err != nil {
		return failed("decode artifact: %v", err)
	}

	return Result{Events: events, ArtifactName: artifactName}
}
