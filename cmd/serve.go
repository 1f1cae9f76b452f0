package cmd

import (
	"fmt"
	"log/slog"

	"github.com/audiolibrelab/quickrec/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for remote control",
	Long: `Start the QuickRec web server to record, list and play memos over HTTP.
This allows you to control recording from your smartphone or any device on the same network.

Recording needs the microphone permission to be granted beforehand
('quickrec permission grant'), because nobody is at the terminal to answer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		if port == "" {
			port = cfg.Server.Port
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		svc := newService(nil)
		defer svc.Close()

		svc.Reload()
		go func() {
			if err := svc.Watch(ctx); err != nil {
				slog.Warn("Directory watcher stopped", "error", err)
			}
		}()

		slog.Info("QuickRec web server starting", "port", port, "directory", cfg.Storage.Directory)
		if err := server.New(svc, port).Start(ctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "port for the web server (default from server.port)")
}
