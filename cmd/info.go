package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/audiolibrelab/quickrec/internal/library"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show format details of a recording",
	Long:  `Decode a recording and display its size, duration, sample rate, channel count and codec.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService(nil)
		defer svc.Close()

		details, err := svc.Describe(args[0])
		if err != nil {
			return fmt.Errorf("failed to read recording: %w", err)
		}
		printDetails(os.Stdout, details)
		return nil
	},
}

func printDetails(w io.Writer, d library.Details) {
	fmt.Fprintf(w, "=== %s ===\n", d.Recording.Name)
	fmt.Fprintf(w, "path: %s\n", d.Recording.Path)
	if !d.Recorded.IsZero() {
		fmt.Fprintf(w, "recorded: %s\n", d.Recorded.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "size: %d bytes\n", d.Size)
	fmt.Fprintf(w, "duration: %s\n", d.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(w, "sample_rate: %d Hz\n", d.SampleRate)
	fmt.Fprintf(w, "channels: %d\n", d.Channels)
	fmt.Fprintf(w, "codec: %s\n", d.Codec)
	if d.Brand != "" {
		fmt.Fprintf(w, "brand: %s\n", d.Brand)
	}
}
