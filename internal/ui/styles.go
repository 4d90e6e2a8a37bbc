package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
// - Default (white/black): Primary text
// - Accent (soft teal #2DD4BF): Highlights, paths, vault names
// - Muted (gray): Secondary info, hints
// - No colored success/error/warning - use unicode symbols only

var (
	// Accent style for vault names, file paths, highlights
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#2DD4BF"))

	// Muted style for secondary info and hints
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().Bold(true)
)

// ConfigureTheme overrides the accent color from config.
// Accepts ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
// An empty value keeps the default palette.
func ConfigureTheme(accent string) {
	if accent == "" {
		return
	}
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color(accent))
}

// VaultName returns an accent-styled vault name.
func VaultName(name string) string {
	return Accent.Render(name)
}

// FilePath returns an accent-styled file path.
func FilePath(path string) string {
	return Accent.Render(path)
}

// Hint returns a muted hint string.
func Hint(msg string) string {
	return Muted.Render(msg)
}
