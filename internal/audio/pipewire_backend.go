package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// PipeWireBackend is the session backend for desktops running PipeWire.
// Activation makes sure the tools a category needs are installed.
type PipeWireBackend struct {
	Input          string
	PlayerCommands []string

	lookPath func(string) (string, error)
}

func NewPipeWireBackend(input string, playerCommands []string) *PipeWireBackend {
	return &PipeWireBackend{
		Input:          input,
		PlayerCommands: playerCommands,
		lookPath:       exec.LookPath,
	}
}

func (p *PipeWireBackend) Name() string {
	return "pipewire"
}

func (p *PipeWireBackend) Activate(ctx context.Context, category Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch category {
	case CategoryPlayAndRecord:
		required := []string{"ffmpeg"}
		if p.Input == InputJack {
			required = append(required, "pw-jack", "pw-link")
		}
		for _, tool := range required {
			if _, err := p.lookPath(tool); err != nil {
				return fmt.Errorf("%s not found in PATH: %w", tool, err)
			}
		}
		return nil

	case CategoryPlayback:
		for _, player := range p.PlayerCommands {
			if _, err := p.lookPath(player); err == nil {
				return nil
			}
		}
		return fmt.Errorf("no audio player found (tried: %s)", strings.Join(p.PlayerCommands, ", "))

	default:
		return fmt.Errorf("unknown audio session category: %s", category)
	}
}

// Deactivate has nothing to tear down: every child process owns its own
// PipeWire client and leaves the graph when it exits.
func (p *PipeWireBackend) Deactivate() error {
	return nil
}

// ListSources returns the ports visible in the PipeWire graph.
func (p *PipeWireBackend) ListSources() ([]string, error) {
	return NewPipeWire().ListPorts()
}
