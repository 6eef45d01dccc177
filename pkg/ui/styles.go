package ui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	flashStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	payloadStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).PaddingLeft(2)

	statusConnected  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	statusConnecting = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	statusOffline    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	bannerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	focusedPanelStyle = panelStyle.BorderForeground(lipgloss.Color("170"))

	roomCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)

	hourStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dayStyle      = lipgloss.NewStyle().Bold(true)
	todayStyle    = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("39"))
	blockStyle    = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230"))
	emptyCellChar = "·"
)
