package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Every ANSI 256 color the CLI uses is named here.
var (
	// colorCyan is used for identifiable nouns: module names, resource names, paths.
	colorCyan = lipgloss.Color("14")

	// colorGreen is used for the "embedded" and "valid" statuses.
	colorGreen = lipgloss.Color("82")

	// colorYellow is used for the "pruned" status and modified diff entries.
	colorYellow = lipgloss.Color("220")

	// colorRed is used for removed diff entries.
	colorRed = lipgloss.Color("196")

	// colorBoldRed is used for the "failed" status (matches ERROR level).
	colorBoldRed = lipgloss.Color("204")

	// colorGreenCheck is used for the completion checkmark.
	colorGreenCheck = lipgloss.Color("10")

	// colorDimGray is used for borders and other structural chrome.
	colorDimGray = lipgloss.Color("240")

	// colorBlue is used for table headers.
	colorBlue = lipgloss.Color("12")
)

// Semantic styles.
var (
	// StyleNoun styles identifiable nouns (module names, resource names, paths).
	StyleNoun = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleAction styles action verbs (weaving, pruning).
	StyleAction = lipgloss.NewStyle().Bold(true)

	// StyleDim styles structural chrome (scope prefixes, separators).
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles completion and summary lines.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// Resource status words.
const (
	StatusEmbedded  = "embedded"
	StatusUnchanged = "unchanged"
	StatusPruned    = "pruned"
	StatusValid     = "valid"
	statusFailed    = "failed"
)

// statusStyle returns the style for a status word. Unknown statuses are unstyled.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case StatusEmbedded, StatusValid:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case StatusUnchanged:
		return lipgloss.NewStyle().Faint(true)
	case StatusPruned:
		return lipgloss.NewStyle().Foreground(colorYellow)
	case statusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(colorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// minResourceColumnWidth is the width the resource name is padded to, so
// status words line up.
const minResourceColumnWidth = 56

// FormatResourceLine renders a resource name with a right-aligned,
// color-coded status suffix: r:<name>  <status>
func FormatResourceLine(name, status string) string {
	padding := minResourceColumnWidth - len(name)
	if padding < 2 {
		padding = 2
	}

	return StyleDim.Render("r:") +
		StyleNoun.Render(name) +
		strings.Repeat(" ", padding) +
		statusStyle(status).Render(status)
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(colorGreenCheck).Render("✔")
	return check + " " + msg
}

// vetLabelWidth aligns the detail column of FormatVetCheck lines.
const vetLabelWidth = 28

// FormatVetCheck renders a passed check with an optional aligned detail.
func FormatVetCheck(label, detail string) string {
	line := FormatCheckmark(label)
	if detail == "" {
		return line
	}
	padding := vetLabelWidth - len(label)
	if padding < 2 {
		padding = 2
	}
	return line + strings.Repeat(" ", padding) + StyleDim.Render(detail)
}

// FormatSize renders a byte count for humans.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Styles groups the styles used to render change reports.
type Styles struct {
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Noun    lipgloss.Style
}

// GetStyles returns the colored report styles.
func GetStyles() *Styles {
	return &Styles{
		Success: lipgloss.NewStyle().Foreground(colorGreen),
		Warning: lipgloss.NewStyle().Foreground(colorYellow),
		Error:   lipgloss.NewStyle().Foreground(colorRed),
		Noun:    StyleNoun,
	}
}

// NoColorStyles returns report styles that render text unchanged.
func NoColorStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{Success: plain, Warning: plain, Error: plain, Noun: plain}
}
