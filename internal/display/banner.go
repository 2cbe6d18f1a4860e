package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerRaw string

// RenderBanner returns the startup banner centred in the terminal.
func RenderBanner() string {
	return centre(bannerRaw, termWidth())
}

// centre styles art as one block and places it in the middle of width
// columns. Art wider than width is returned unpadded.
func centre(art string, width int) string {
	art = strings.TrimRight(art, "\n")
	if art == "" {
		return ""
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, BannerStyle.Render(art)) + "\n"
}

// termWidth returns the terminal column count, or 80 when stdout is not
// a terminal.
func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
