package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Prompt asks the microphone question inside the TUI instead of on a raw
// terminal line.
type Prompt struct {
	requests chan chan bool
}

func NewPrompt() *Prompt {
	return &Prompt{requests: make(chan chan bool)}
}

// Ask blocks until the user answers in the TUI or ctx is done.
func (p *Prompt) Ask(ctx context.Context) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case p.requests <- reply:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case granted := <-reply:
		return granted, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type promptMsg struct {
	reply chan bool
}

func (p *Prompt) wait() tea.Cmd {
	return func() tea.Msg {
		return promptMsg{reply: <-p.requests}
	}
}
