package cmd

import (
	"fmt"

	"github.com/audiolibrelab/quickrec/internal/library"
	"github.com/audiolibrelab/quickrec/internal/service"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <name>",
	Short: "Play a recording",
	Long:  `Play a recording through ffplay, mpv or vlc and wait until it ends or Ctrl+C is pressed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		svc := newService(nil)
		defer svc.Close()

		finished := make(chan error, 1)
		svc.Subscribe(func(ev service.Event) {
			if ev.Library != nil && ev.Library.Kind == library.EventPlaybackStopped {
				select {
				case finished <- ev.Library.Err:
				default:
				}
			}
		})

		if _, err := svc.Play(name); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		fmt.Printf("Playing %s - press Ctrl+C to stop\n", name)

		select {
		case err := <-finished:
			if err != nil {
				return fmt.Errorf("playback failed: %w", err)
			}
		case <-ctx.Done():
			svc.StopPlayback()
		}
		return nil
	},
}
