package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette. Each color has a variant for light and dark terminal backgrounds.
var (
	PrimaryColor = lipgloss.AdaptiveColor{Light: "#1F6FB2", Dark: "#4FA3E0"} // Headers, borders
	SuccessColor = lipgloss.AdaptiveColor{Light: "#1E8A45", Dark: "#43BF6D"}
	ErrorColor   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5555"}
	WarningColor = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFA500"}
	MutedColor   = lipgloss.AdaptiveColor{Light: "#767676", Dark: "#8A8A8A"}
	TextColor    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F2F2F2"}
	AccentColor  = lipgloss.AdaptiveColor{Light: "#8E24AA", Dark: "#D58CF0"} // Frame tag bytes
)

// Layout
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
	defaultHeight    = 24
)

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Text styles
var (
	HeaderTitleStyle      = fg(TextColor).Bold(true).PaddingLeft(2)
	HeaderCommandStyle    = fg(MutedColor).PaddingLeft(2)
	HeaderParamKeyStyle   = fg(MutedColor).PaddingLeft(2)
	HeaderParamValueStyle = fg(TextColor)

	StepCompleteStyle = fg(SuccessColor)
	StepRunningStyle  = fg(WarningColor)
	StepPendingStyle  = fg(MutedColor)
	StepNoteStyle     = fg(MutedColor).Italic(true)

	SuccessTitleStyle = fg(SuccessColor).Bold(true)
	ErrorTitleStyle   = fg(ErrorColor).Bold(true)
	WarningTitleStyle = fg(WarningColor).Bold(true)
	ErrorMessageStyle = fg(ErrorColor)
	ResultKeyStyle    = fg(MutedColor).Width(15)
	ResultValueStyle  = fg(TextColor)

	TroubleshootingTitleStyle = fg(MutedColor).Bold(true)
	TroubleshootingItemStyle  = fg(MutedColor)

	TableHeaderStyle = fg(PrimaryColor).Bold(true)
	TableCellStyle   = fg(TextColor)

	// Frame hex: tag byte and checksum byte
	FrameTagStyle      = fg(AccentColor).Bold(true)
	FrameChecksumStyle = fg(MutedColor)
)

// Status markers
const (
	StepMarkerComplete = "✓"
	StepMarkerRunning  = "●"
	StepMarkerPending  = "·"
	StepMarkerSkipped  = "⊘"
	SuccessMarker      = "✓"
	FailureMarker      = "✗"
	WarningMarker      = "⚠"
)

// GetTerminalSize returns the stdout terminal size. The width is kept
// between MinTerminalWidth and MaxContentWidth; when stdout is not a
// terminal the minimum width is used.
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, defaultHeight
	}
	return min(clampWidth(width), MaxContentWidth), height
}

// GetTerminalWidth returns the content width for boxes and tables
func GetTerminalWidth() int {
	width, _ := GetTerminalSize()
	return width
}

// IsTerminal reports whether stdout is attached to a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func clampWidth(width int) int {
	return max(width, MinTerminalWidth)
}

// BoxStyle returns the double-bordered result box
func BoxStyle(width int, color lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2)
}

// PanelStyle returns the rounded panel used for headers and tables
func PanelStyle(width int, color lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(width - 2)
}

// TroubleshootingBoxStyle returns the box nested in a failure result
func TroubleshootingBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(max(width-12, 40)).
		Padding(0, 1).
		MarginLeft(3)
}

// RenderHorizontalDivider draws a line of char in the primary color
func RenderHorizontalDivider(width int, char string) string {
	return fg(PrimaryColor).Render(strings.Repeat(char, width))
}
