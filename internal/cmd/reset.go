package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edvall/sonata/internal/config"
	"github.com/spf13/cobra"
)

// NewResetCmd creates the reset command
func NewResetCmd(prompter Prompter) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset all tracked state for full reprocessing",
		Long: `Reset all tracked state for full reprocessing.

Deletes the session database and all transcription artifacts, then moves every
archived recording back into the inbox so the service re-analyzes the whole
history from scratch. Asks for confirmation first. Stop the service before
running this.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := prompter
			if p == nil {
				p = NewStdinPrompter()
			}
			return runReset(cmd, p, configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	return cmd
}

func runReset(cmd *cobra.Command, prompter Prompter, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "This will delete the session database and all transcription artifacts,")
	fmt.Fprintf(out, "and move every archived recording back to %s\n", cfg.InboxDir)

	answer, err := prompter.Prompt("Continue? [y/N]: ")
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(out, "Aborted")
		return nil
	}

	if err := os.Remove(cfg.DatabasePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete database: %w", err)
	}
	fmt.Fprintln(out, "Session database deleted")

	removed, err := clearDir(cfg.ArtifactDir)
	if err != nil {
		return fmt.Errorf("clear artifacts: %w", err)
	}
	fmt.Fprintf(out, "Removed %d transcription artifacts\n", removed)

	moved, err := drainArchive(cfg)
	if err != nil {
		return fmt.Errorf("drain archive: %w", err)
	}
	fmt.Fprintf(out, "Moved %d recordings back to the inbox\n", moved)

	return nil
}

// clearDir removes every regular file in dir; a missing dir counts as empty.
func clearDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// drainArchive moves every archived recording matching the watch patterns
// back into the inbox.
func drainArchive(cfg *config.Config) (int, error) {
	entries, err := os.ReadDir(cfg.ArchiveDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(cfg.InboxDir, 0755); err != nil {
		return 0, err
	}

	moved := 0
	for _, entry := range entries {
		if entry.IsDir() || !matchesAny(cfg.WatchPatterns, entry.Name()) {
			continue
		}
		src := filepath.Join(cfg.ArchiveDir, entry.Name())
		dst := filepath.Join(cfg.InboxDir, entry.Name())
		if err := os.Rename(src, dst); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
