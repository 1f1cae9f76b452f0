package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/quickrec/internal/audio"
	"github.com/audiolibrelab/quickrec/internal/config"
	"github.com/audiolibrelab/quickrec/internal/service"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	verboseLevel int

	// toolOutput receives ffmpeg output at verbose level 2.
	toolOutput io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "quickrec",
	Short: "Voice memo recorder for PipeWire desktops",
	Long: `QuickRec records voice memos from the microphone into timestamped
.m4a files and lets you list, play back and delete them.

Without a subcommand it opens the terminal UI with a Record and a Listen tab.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure slog based on verbose level
		setupLogging(os.Stderr, verboseLevel)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		slog.Debug("Configuration loaded", "file", cfg.File, "directory", cfg.Storage.Directory)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return uiCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/quickrec.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug, 2=ffmpeg output")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(permissionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uiCmd)
}

// setupLogging configures slog based on the verbose level
func setupLogging(w io.Writer, level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}

// newService builds the service for a one-shot command. prompt may be nil
// when there is nobody to ask.
func newService(prompt audio.Prompter) *service.QuickRecService {
	var logWriter io.Writer
	if verboseLevel >= 2 {
		logWriter = toolOutput
	}
	return service.New(cfg, service.Options{Prompt: prompt, LogWriter: logWriter})
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
