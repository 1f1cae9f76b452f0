package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/audiolibrelab/quickrec/internal/tui"

	"github.com/spf13/cobra"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the terminal UI",
	Long:  `Open the two-tab terminal UI. Logs go to quickrec.log next to the state file.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logPath := filepath.Join(filepath.Dir(cfg.Storage.StateFile), "quickrec.log")
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		setupLogging(logFile, verboseLevel)
		toolOutput = logFile

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		prompt := tui.NewPrompt()
		svc := newService(prompt.Ask)
		defer svc.Close()

		go func() {
			if err := svc.Watch(ctx); err != nil {
				slog.Warn("Directory watcher stopped", "error", err)
			}
		}()

		return tui.Run(ctx, svc, prompt)
	},
}
