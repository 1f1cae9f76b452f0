package audio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/audiolibrelab/quickrec/internal/state"
)

// Authority decides whether the microphone may be used.
type Authority interface {
	RequestRecordPermission(ctx context.Context) (bool, error)
}

// ConsentStore remembers the user's answer between runs.
type ConsentStore interface {
	Consent() (state.Consent, error)
	SetConsent(granted bool) error
}

// Prompter asks the user for microphone access.
type Prompter func(ctx context.Context) (bool, error)

// SystemAuthority asks the user once and stores the answer. A granted answer
// still requires the capture source to exist in the PipeWire graph.
type SystemAuthority struct {
	store    ConsentStore
	prompt   Prompter
	input    string
	source   string
	pipewire *PipeWire
}

func NewSystemAuthority(store ConsentStore, prompt Prompter, input, source string) *SystemAuthority {
	return &SystemAuthority{
		store:    store,
		prompt:   prompt,
		input:    input,
		source:   source,
		pipewire: NewPipeWire(),
	}
}

func (a *SystemAuthority) RequestRecordPermission(ctx context.Context) (bool, error) {
	consent, err := a.store.Consent()
	if err != nil {
		return false, err
	}

	switch consent {
	case state.ConsentDenied:
		return false, nil

	case state.ConsentUnknown:
		if a.prompt == nil {
			slog.Warn("Microphone permission has not been granted yet", "hint", "run 'quickrec permission grant'")
			return false, nil
		}
		granted, err := a.prompt(ctx)
		if err != nil {
			return false, fmt.Errorf("microphone prompt failed: %w", err)
		}
		if err := a.store.SetConsent(granted); err != nil {
			return false, err
		}
		if !granted {
			return false, nil
		}
	}

	if a.input == InputJack {
		if err := a.pipewire.ValidatePort(a.source); err != nil {
			return false, fmt.Errorf("capture source unavailable: %w", err)
		}
	}
	return true, nil
}

// TerminalPrompter asks on out and reads a y/N answer from in.
func TerminalPrompter(in io.Reader, out io.Writer) Prompter {
	return func(ctx context.Context) (bool, error) {
		fmt.Fprint(out, "Allow QuickRec to use the microphone? [y/N] ")

		answer := make(chan string, 1)
		go func() {
			line, _ := bufio.NewReader(in).ReadString('\n')
			answer <- line
		}()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case line := <-answer:
			line = strings.ToLower(strings.TrimSpace(line))
			return line == "y" || line == "yes", nil
		}
	}
}
