package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary = lipgloss.Color("#00D4FF") // Cyan
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorText    = lipgloss.Color("#E5E7EB") // Light gray
	colorDim     = lipgloss.Color("#4B5563") // Dim gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	headerInfoStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim)

	focusedPaneStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(colorError)

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	dirtyStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary)

	pickerItemStyle = lipgloss.NewStyle().
			Foreground(colorText)

	pickerSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorText)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)
