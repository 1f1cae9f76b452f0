package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorPink     lipgloss.Color = "#f5c2e7"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
	colorSurface0 lipgloss.Color = "#313244"
	colorMantle   lipgloss.Color = "#181825"
)

var (
	headerAppStyle   = lipgloss.NewStyle().Foreground(colorPink).Bold(true).Padding(0, 1)
	headerBarStyle   = lipgloss.NewStyle().Background(colorMantle)
	activeTabStyle   = lipgloss.NewStyle().Foreground(colorLavender).Bold(true).Underline(true).Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(colorOverlay1).Padding(0, 1)
	tabSepStyle      = lipgloss.NewStyle().Foreground(colorSurface1)
	badgeStyle       = lipgloss.NewStyle().Foreground(colorMantle).Background(colorPeach).Bold(true).Padding(0, 1)

	bodyStyle      = lipgloss.NewStyle().Padding(1, 2)
	labelStyle     = lipgloss.NewStyle().Foreground(colorSubtext0)
	recordingStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	idleStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorOverlay1)
	rowStyle       = lipgloss.NewStyle().Foreground(colorText)
	cursorStyle    = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	playingStyle   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	footerStyle    = lipgloss.NewStyle().Foreground(colorOverlay1).Padding(0, 1)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRed).
			Background(colorSurface0).
			Padding(1, 3)
	modalTitleStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	promptStyle     = modalStyle.BorderForeground(colorBlue)
	promptTitle     = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
)
