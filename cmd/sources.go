package cmd

import (
	"fmt"

	"github.com/audiolibrelab/quickrec/internal/audio"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available audio sources",
	Long:  `List the ports in the PipeWire graph that can be used as input.source with the jack backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := audio.NewPipeWireBackend(cfg.Input.Backend, nil)
		sources, err := backend.ListSources()
		if err != nil {
			return fmt.Errorf("failed to get PipeWire sources: %w", err)
		}

		fmt.Printf("PIPEWIRE/JACK SOURCES (%d found):\n", len(sources))
		for i, source := range sources {
			marker := ""
			if source == cfg.Input.Source {
				marker = "  (configured)"
			}
			fmt.Printf("  %d. %s%s\n", i+1, source, marker)
		}

		fmt.Printf("\nCurrent input: backend=%s source=%s\n", cfg.Input.Backend, cfg.Input.Source)
		fmt.Printf("  • jack:  set input.source to a \"device:port\" from the list above\n")
		fmt.Printf("  • pulse: set input.source to a name from 'pactl list short sources', or \"default\"\n")
		return nil
	},
}
