package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/audiolibrelab/quickrec/internal/recording"
	"github.com/audiolibrelab/quickrec/internal/session"
)

func (m model) View() string {
	header := m.renderHeader()
	footer := footerStyle.Render(m.keyHelp())

	var body string
	if m.tab == tabRecord {
		body = m.renderRecord()
	} else {
		body = m.renderListen()
	}
	if m.status != "" {
		body += "\n\n" + statusStyle.Render(m.status)
	}
	body = bodyStyle.Render(body)

	screen := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)

	switch {
	case m.asking != nil:
		return m.place(renderPrompt())
	case m.alert != nil:
		return m.place(renderAlert(*m.alert))
	}
	return screen
}

func (m model) place(modal string) string {
	if m.width <= 0 || m.height <= 0 {
		return modal
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func (m model) renderHeader() string {
	name := headerAppStyle.Render("QuickRec")

	var tabs []string
	for i, title := range tabNames {
		style := inactiveTabStyle
		if tab(i) == m.tab {
			style = activeTabStyle
		}
		label := style.Render(title)
		if tab(i) == tabListen && m.badge {
			label += badgeStyle.Render("New")
		}
		tabs = append(tabs, label)
	}
	line := name + "  " + strings.Join(tabs, tabSepStyle.Render("│"))

	if m.width <= 0 {
		return headerBarStyle.Render(line)
	}
	return headerBarStyle.Width(m.width).Render(line)
}

func (m model) renderRecord() string {
	var b strings.Builder

	switch m.rec.State {
	case session.StateRecording:
		b.WriteString(recordingStyle.Render("● Recording"))
		if m.rec.Recording != nil {
			b.WriteString("  " + rowStyle.Render(m.rec.Recording.Name))
		}
		if !m.rec.StartTime.IsZero() {
			b.WriteString("\n\n" + labelStyle.Render("Elapsed ") + rowStyle.Render(formatElapsed(m.now.Sub(m.rec.StartTime))))
		}
	case session.StateIdle:
		b.WriteString(idleStyle.Render("Ready to record"))
	case session.StateDenied:
		b.WriteString(mutedStyle.Render("Recording is unavailable without microphone permission."))
		b.WriteString("\n" + mutedStyle.Render("Run 'quickrec permission reset' to be asked again."))
	case session.StateUnavailable:
		b.WriteString(mutedStyle.Render("Recording session could not be activated."))
	default:
		b.WriteString(mutedStyle.Render("Preparing recording session..."))
	}

	b.WriteString("\n\n" + labelStyle.Render(fmt.Sprintf("%d recording(s) saved", len(m.recs))))
	return b.String()
}

func (m model) renderListen() string {
	if len(m.recs) == 0 {
		return mutedStyle.Render("No recordings yet. Switch to Record and press r.")
	}

	var playingPath string
	if m.playback.Recording != nil {
		playingPath = m.playback.Recording.Path
	}

	lines := make([]string, 0, len(m.recs))
	for i, rec := range m.recs {
		prefix := "  "
		style := rowStyle
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
			style = cursorStyle
		}
		line := prefix + style.Render(rec.Name)
		if rec.Path == playingPath {
			line += "  " + playingStyle.Render("▶ playing")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m model) keyHelp() string {
	common := "tab switch  q quit"
	if m.tab == tabRecord {
		switch m.rec.State {
		case session.StateRecording:
			return "s stop and save  " + common
		case session.StateIdle:
			return "r record  " + common
		}
		return common
	}
	return "↑/↓ select  enter play  x stop  d delete  " + common
}

func renderAlert(alert recording.Alert) string {
	return modalStyle.Render(
		modalTitleStyle.Render(alert.Title) + "\n\n" +
			rowStyle.Render(alert.Message) + "\n\n" +
			mutedStyle.Render("enter OK"))
}

func renderPrompt() string {
	return promptStyle.Render(
		promptTitle.Render("Microphone access") + "\n\n" +
			rowStyle.Render("Allow QuickRec to use the microphone?") + "\n\n" +
			mutedStyle.Render("y allow  n deny"))
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
