package main

import "github.com/charmbracelet/lipgloss"

// UI styles for the TUI interface
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	portFreeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#9ECE6A"))

	portBusyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E0AF68"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1a1a1a")).
			Background(lipgloss.Color("#7DCFFF"))

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c0c0"))

	portStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7DCFFF")).
			Width(10)

	pidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ECE6A")).
			Width(8)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BB9AF7")).
			Width(15)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0AF68")).
			Width(12)

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#737373"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	confirmStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ECE6A")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#626262"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Italic(true)

	busyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7DCFFF")).
			MarginTop(1)
)
