package cmd

import (
	"fmt"

	"github.com/edvall/sonata/internal/pidfile"
	"github.com/edvall/sonata/internal/status"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status and today's activity",
		Long:  "Show whether the service is running and a summary of today's log: sessions persisted, duplicates discarded and errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	running, pid, err := pidfile.IsRunning()
	if err != nil {
		return fmt.Errorf("check service: %w", err)
	}
	if running {
		fmt.Fprintf(out, "Service:    running (PID %d)\n", pid)
	} else if pid != 0 {
		fmt.Fprintf(out, "Service:    not running (stale PID file, PID %d)\n", pid)
	} else {
		fmt.Fprintln(out, "Service:    not running")
	}

	stats, err := status.ParseTodayStats()
	if err != nil {
		return fmt.Errorf("parse log: %w", err)
	}

	fmt.Fprintf(out, "Sessions:   %d persisted today\n", stats.SessionsPersisted)
	fmt.Fprintf(out, "Duplicates: %d discarded\n", stats.Duplicates)
	fmt.Fprintf(out, "Errors:     %d\n", stats.Errors)

	if stats.LastSession != nil {
		fmt.Fprintf(out, "Last:       %s at %s (fingerprint %.12s)\n",
			status.BaseName(stats.LastSession.File),
			status.FormatTimestamp(stats.LastSession.Timestamp),
			stats.LastSession.Fingerprint,
		)
	}

	return nil
}
