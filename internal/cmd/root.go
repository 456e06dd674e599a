package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the sonata CLI
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sonata",
		Short: "Piano practice tracker",
		Long:  "Sonata - analyzes piano practice recordings into session metrics: active time, efficiency and keystroke counts",
	}

	rootCmd.AddCommand(NewConfigCmd(nil))
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewStopCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewAnalyzeCmd())
	rootCmd.AddCommand(NewResetCmd(nil))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
