package cmd

import (
	"fmt"
	"strings"

	"github.com/edvall/sonata/internal/config"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command
func NewConfigCmd(prompter Prompter) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Configure the practice tracker",
		Long:  "Interactive configuration for the recording inbox, transcription model and storage locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := prompter
			if p == nil {
				p = NewStdinPrompter()
			}
			return runConfig(cmd, p)
		},
	}
}

func runConfig(cmd *cobra.Command, prompter Prompter) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Practice Tracker Configuration")
	fmt.Fprintln(out, "==============================")
	fmt.Fprintln(out, "")

	inboxDir, err := promptRequired(prompter, "Recording inbox folder [required]: ")
	if err != nil {
		return err
	}

	transcriberCommand, err := promptRequired(prompter, "Transcription command [required]: ")
	if err != nil {
		return err
	}

	archiveDir, err := prompter.Prompt(fmt.Sprintf("Archive location [default: %s]: ", config.DefaultArchiveDir))
	if err != nil {
		return err
	}

	syncVolumes, err := prompter.Prompt("Sync volume globs, comma separated [optional, Enter to skip]: ")
	if err != nil {
		return err
	}

	cfg := &config.Config{
		InboxDir:           inboxDir,
		TranscriberCommand: transcriberCommand,
		ArchiveDir:         archiveDir,
	}
	if syncVolumes != "" {
		cfg.SyncVolumes = splitCommaList(syncVolumes)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Save(""); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	path, err := config.DefaultPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "Configuration saved to %s\n", path)

	return nil
}

func splitCommaList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
