package cmd

import (
	"fmt"
	"os"

	"github.com/edvall/sonata/internal/audio"
	"github.com/edvall/sonata/internal/config"
	"github.com/edvall/sonata/internal/metrics"
	"github.com/edvall/sonata/internal/midi"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	var transcriberCommand string

	cmd := &cobra.Command{
		Use:   "analyze <recording.wav>",
		Short: "Analyze a single recording without persisting it",
		Long: `Analyze a single recording without persisting it.

Prints the waveform summary, an amplitude-based activity estimate, and, when
a transcription command is available (from --transcriber or the config file),
the full transcription-derived metrics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], transcriberCommand)
		},
	}

	cmd.Flags().StringVar(&transcriberCommand, "transcriber", "", "transcription command (overrides config)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, path, transcriberCommand string) error {
	out := cmd.OutOrStdout()

	clip, err := audio.DecodeWAV(path)
	if err != nil {
		return fmt.Errorf("decode recording: %w", err)
	}
	summary := audio.Summarize(clip)

	fmt.Fprintf(out, "File:            %s\n", path)
	fmt.Fprintf(out, "Sample rate:     %d Hz\n", clip.SampleRate)
	fmt.Fprintf(out, "Total duration:  %.1fs\n", summary.TotalDuration)
	fmt.Fprintf(out, "Envelope points: %d\n", len(summary.Envelope))

	if summary.Silent() {
		fmt.Fprintln(out, "Recording is silent, nothing to analyze")
		return nil
	}

	spans, threshold := audio.ActiveSpans(summary)
	var spanTotal float64
	for _, span := range spans {
		spanTotal += span.Duration()
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Amplitude estimate (threshold %.1f dB):\n", threshold)
	fmt.Fprintf(out, "  active spans:  %d\n", len(spans))
	fmt.Fprintf(out, "  active time:   %.1fs\n", spanTotal)

	if transcriberCommand == "" {
		if cfg, err := config.Load(""); err == nil {
			transcriberCommand = cfg.TranscriberCommand
		}
	}
	if transcriberCommand == "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "No transcription command configured, skipping keystroke metrics")
		return nil
	}

	workDir, err := os.MkdirTemp("", "sonata-analyze-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	res := midi.NewTranscriber(transcriberCommand).Transcribe(cmd.Context(), path, workDir)
	if res.Failed {
		return fmt.Errorf("transcription failed: %s", res.Reason)
	}

	result := metrics.Compute(res.Events, summary.TotalDuration)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Transcription metrics:")
	fmt.Fprintf(out, "  keystrokes:    %d\n", result.Keystrokes)
	fmt.Fprintf(out, "  active time:   %.1fs\n", result.ActiveDuration)
	fmt.Fprintf(out, "  efficiency:    %.0f%%\n", result.Efficiency*100)
	fmt.Fprintf(out, "  intervals:     %d\n", len(result.Intervals))

	return nil
}
