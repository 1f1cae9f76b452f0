package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/audiolibrelab/quickrec/internal/audio"
	"github.com/audiolibrelab/quickrec/internal/service"
	"github.com/audiolibrelab/quickrec/internal/session"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a voice memo",
	Long: `Record from the configured microphone until Enter or Ctrl+C is pressed.
The memo is saved as recording-<yyyy.MM.dd_HH-mm-ss>.m4a in the recordings directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		svc := newService(audio.TerminalPrompter(os.Stdin, os.Stderr))
		defer svc.Close()

		failed := make(chan error, 1)
		svc.Subscribe(func(ev service.Event) {
			if ev.Session != nil && ev.Session.Kind == session.EventAlert {
				select {
				case failed <- fmt.Errorf("%s", ev.Session.Alert):
				default:
				}
			}
		})

		rec, err := svc.StartRecording(ctx)
		if err != nil {
			if alert := svc.Alert(); alert != nil {
				return fmt.Errorf("%s: %w", alert, err)
			}
			return fmt.Errorf("failed to start recording: %w", err)
		}

		fmt.Fprintf(os.Stderr, "Recording %s - press Enter or Ctrl+C to stop\n", rec.Name)

		enter := make(chan struct{})
		go func() {
			bufio.NewReader(os.Stdin).ReadString('\n')
			close(enter)
		}()

		select {
		case <-enter:
		case <-ctx.Done():
		case err := <-failed:
			return err
		}

		slog.Info("Stopping recording...")
		saved, err := svc.StopRecording()
		if err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		if saved != nil {
			fmt.Println(saved.Path)
		}
		return nil
	},
}
