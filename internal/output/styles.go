package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette — named constants for all ANSI 256 colors used in the CLI.
// These are the single source of truth; never use inline lipgloss.Color literals.
var (
	// ColorCyan is used for identifiable nouns: theme names, partial
	// identifiers, variation names.
	ColorCyan = lipgloss.Color("14")

	// ColorGreen is used for successful terminal states (uploaded, activated).
	ColorGreen = lipgloss.Color("82")

	// ColorYellow is used for advisory conditions (theme slot limit reached).
	ColorYellow = lipgloss.Color("220")

	// ColorBoldRed is used for the failure line printed before a non-zero exit.
	ColorBoldRed = lipgloss.Color("204")

	// ColorGreenCheck is used for the completion checkmark (✔).
	ColorGreenCheck = lipgloss.Color("10")

	// ColorDimGray is used for structural chrome such as the progress bar rail.
	ColorDimGray = lipgloss.Color("240")
)

// Semantic styles — map domain concepts to visual presentation.
var (
	// StyleNoun styles identifiable nouns (theme names, partials, variations).
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleWarn styles advisory lines (quota warnings).
	StyleWarn = lipgloss.NewStyle().Foreground(ColorYellow)

	// StyleFailure styles the top-level failure line.
	StyleFailure = lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)

	// StyleDim styles structural chrome.
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}

// FormatFailure renders the colored failure line printed by the top-level
// caller before exiting non-zero.
func FormatFailure(err error) string {
	return StyleFailure.Render("✖ " + err.Error())
}

// progressRailWidth is the character width of the progress bar rail.
const progressRailWidth = 30

// FormatProgress renders a progress line for a 0-100 percentage, e.g. during
// the remote job-completion poll. Out-of-range values are clamped.
func FormatProgress(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * progressRailWidth / 100
	bar := ""
	for i := 0; i < progressRailWidth; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	rail := StyleDim.Render(bar)
	return fmt.Sprintf("%s %3d%%", rail, percent)
}
