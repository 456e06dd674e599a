package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/edvall/sonata/internal/api"
	"github.com/edvall/sonata/internal/config"
	"github.com/edvall/sonata/internal/ingest"
	"github.com/edvall/sonata/internal/logging"
	"github.com/edvall/sonata/internal/pidfile"
	"github.com/edvall/sonata/internal/store"
	"github.com/edvall/sonata/internal/syncer"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the practice tracking service in foreground mode",
		Long: `Run the practice tracking service in foreground mode.

The service polls the recording inbox, analyzes new recordings, persists
session metrics and serves the HTTP API. When sync volumes are configured it
also copies new recordings from removable volumes into the inbox.
Configuration is read from ~/.sonata/config.json unless --config is given.

The service runs until interrupted with Ctrl+C or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := pidfile.CleanStale(); err != nil {
		return fmt.Errorf("check pid file: %w", err)
	}
	if running, pid, err := pidfile.IsRunning(); err != nil {
		return fmt.Errorf("check pid file: %w", err)
	} else if running {
		return fmt.Errorf("service already running (PID %d)", pid)
	}

	logCfg := logging.Config{}
	if cfg.Debug {
		logCfg = logCfg.WithMinLevel(logging.LevelDebug)
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Close()

	if err := pidfile.Write(os.Getpid()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer pidfile.Remove()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := ingest.New(cfg, st, logger)
	volumes := syncer.New(cfg, logger)
	server := api.New(cfg, st, pipeline, logger)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Starting practice tracking service...")
	fmt.Fprintf(out, "Inbox:   %s\n", cfg.InboxDir)
	fmt.Fprintf(out, "Archive: %s\n", cfg.ArchiveDir)
	fmt.Fprintf(out, "API:     http://%s\n", cfg.ListenAddr)
	fmt.Fprintln(out, "Press Ctrl+C to stop")
	fmt.Fprintln(out)

	go pipeline.Run(ctx)
	go volumes.Run(ctx)

	// Run blocks until the context is cancelled or the listener fails.
	err = server.Run(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}

	fmt.Fprintln(out, "Service stopped")
	return nil
}
