package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primary = lipgloss.Color("#00ff9f")
	dim     = lipgloss.Color("#6e7681")
	danger  = lipgloss.Color("#ff5f87")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	helpStyle  = lipgloss.NewStyle().Foreground(dim)
	errorStyle = lipgloss.NewStyle().Foreground(danger)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(primary)).
		Headers(headers...)
}
