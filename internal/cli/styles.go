// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cleared-dev/recon/internal/model"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#7D56F4")
	// SuccessColor marks auto-accepted pairs and completed steps.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor marks pairs that need review.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor marks rejected pairs and failures.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// SubtleColor is used for secondary text.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().Foreground(SubtleColor)

	// LabelStyle pads labels in key/value listings.
	LabelStyle = lipgloss.NewStyle().Width(22)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "!"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatTitle formats a section title.
func FormatTitle(title string) string {
	return TitleStyle.Render(title)
}

// TierStyle returns the style used for a recommendation tier.
func TierStyle(r model.Recommendation) lipgloss.Style {
	switch r {
	case model.RecommendAutoAccept:
		return SuccessStyle
	case model.RecommendManualReview:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// KeyValue renders one aligned "label  value" line.
func KeyValue(label, value string) string {
	return LabelStyle.Render(label) + value
}

// RenderBox renders content in a styled box under a title.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), content))
}
