package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	tabStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeTab     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Underline(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	incomeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	expenseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	transferStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	overStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	nominalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)
