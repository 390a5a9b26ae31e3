package util

import (
	"fmt"

	"github.com/mattn/go-runewidth"
)

// Terminal color sequences
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorBold   = "\033[1m"
)

// GetDisplayWidth returns the number of terminal cells text occupies.
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// TruncateToWidth shortens text to at most width cells, marking the cut
// with an ellipsis.
func TruncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "…")
}

// Colorize wraps text in color when enabled.
func Colorize(text, color string, enabled bool) string {
	if !enabled || color == "" {
		return text
	}
	return fmt.Sprintf("%s%s%s", color, text, ColorReset)
}
