// Package display renders error reports to a terminal or any other writer.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-logviewer/internal/core/constants"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/util"
	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

const ruleChar = "─"

type fder interface {
	Fd() uintptr
}

// Renderer writes display models as a title block followed by the report
// text. Colors are only used on terminals.
type Renderer struct {
	out   io.Writer
	width int
	color bool
}

func NewRenderer(out io.Writer) *Renderer {
	width, isTerm := terminalWidth(out)
	return &Renderer{out: out, width: width, color: isTerm}
}

// Width is the number of columns titles are fitted to.
func (r *Renderer) Width() int {
	return r.width
}

// IsTerminal reports whether the output is attached to a terminal.
func (r *Renderer) IsTerminal() bool {
	return r.color
}

// Render writes m. The report text is written unmodified so it can be
// copied out of the terminal as is.
func (r *Renderer) Render(m *model.DisplayModel) error {
	var sb strings.Builder

	if m.Title != "" {
		title := util.TruncateToWidth(m.Title, r.width)
		sb.WriteString(util.Colorize(title, util.ColorBold, r.color))
		sb.WriteByte('\n')
		sb.WriteString(util.Colorize(strings.Repeat(ruleChar, util.GetDisplayWidth(title)), util.ColorCyan, r.color))
		sb.WriteByte('\n')
	}

	text := m.Text()
	sb.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		sb.WriteByte('\n')
	}

	if m.MoreInfoAvailable {
		sb.WriteByte('\n')
		sb.WriteString(util.Colorize(constants.MsgMoreInfoAvailable, util.ColorYellow, r.color))
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(r.out, sb.String())
	return err
}

// Notice writes a one-line message, the terminal stand-in for a toast.
func (r *Renderer) Notice(message string) {
	fmt.Fprintln(r.out, message)
}

// Saved implements export.Notifier.
func (r *Renderer) Saved(fileName string) {
	r.Notice(util.Colorize(fmt.Sprintf(constants.MsgSavedAsFormat, fileName), util.ColorGreen, r.color))
}

// Failed implements export.Notifier.
func (r *Renderer) Failed(message string, err error) {
	util.LogDebugf("%s: %v", message, err)
	r.Notice(util.Colorize(message, util.ColorRed, r.color))
}

func terminalWidth(out io.Writer) (int, bool) {
	f, ok := out.(fder)
	if !ok {
		return DefaultWidth, false
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return DefaultWidth, false
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		util.LogDebugf("Failed to get terminal size: %v", err)
		return DefaultWidth, true
	}
	return width, true
}
