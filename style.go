package main

import "github.com/charmbracelet/lipgloss"

const maxWidth = 72

var (
	green = lipgloss.Color("#04B575")

	keywordStyle = lipgloss.NewStyle().Foreground(green)

	paragraphStyle = lipgloss.NewStyle().
			Width(maxWidth).
			Padding(0, 0, 0, 2)
)

func keyword(s string) string {
	return keywordStyle.Render(s)
}

func paragraph(s string) string {
	return paragraphStyle.Render(s)
}
