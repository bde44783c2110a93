// Package display provides unified, themed terminal output for the CLI —
// boxed headers, status lines, and the task table `status` prints.
package display

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dagctl/dagctl/internal/runstate"
	"golang.org/x/term"
)

// Display handles all CLI output with visual hierarchy.
type Display struct {
	theme     *Theme
	termWidth int
	noColor   bool
}

// New creates a Display using the default theme.
func New() *Display {
	return NewWithOptions(false)
}

// NewWithOptions creates a Display with an explicit no-color setting.
func NewWithOptions(noColor bool) *Display {
	d := &Display{
		termWidth: getTerminalWidth(),
		noColor:   noColor,
	}
	if noColor {
		d.theme = NoColorTheme()
	} else {
		d.theme = DefaultTheme()
	}
	return d
}

// getTerminalWidth returns the terminal width, defaulting to 80 and
// capping at 120 for readability.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	if width > 120 {
		return 120
	}
	return width
}

// Box prints a titled, bordered block of lines.
func (d *Display) Box(title string, lines ...string) {
	if len(lines) == 0 {
		return
	}

	width := d.termWidth - 2
	titleLen := len(title) + 4
	remainingWidth := width - titleLen
	if remainingWidth < 0 {
		remainingWidth = 0
	}

	topLine := BoxTopLeft + BoxHorizontal + " " + title + " " + strings.Repeat(BoxHorizontal, remainingWidth) + BoxTopRight
	fmt.Println(d.theme.Border(topLine))

	for _, line := range lines {
		padded := d.padRight(line, width-2)
		fmt.Println(d.theme.Border(BoxVertical) + " " + d.theme.Text(padded) + " " + d.theme.Border(BoxVertical))
	}

	bottomLine := BoxBottomLeft + strings.Repeat(BoxHorizontal, width) + BoxBottomRight
	fmt.Println(d.theme.Border(bottomLine))
}

// StatusLine prints a single timestamped line with a leading symbol.
func (d *Display) StatusLine(symbol, message string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n", d.theme.Dim(timestamp), symbol, d.theme.Text(message))
}

func (d *Display) Success(message string) { d.StatusLine(d.theme.Success(SymbolSuccess), message) }
func (d *Display) Error(message string)   { d.StatusLine(d.theme.Error(SymbolError), message) }
func (d *Display) Warning(message string) { d.StatusLine(d.theme.Warning(SymbolWarning), message) }
func (d *Display) Info(label, message string) {
	d.StatusLine(d.theme.Info(label+":"), message)
}

// SectionBreak prints a horizontal separator spanning the terminal width.
func (d *Display) SectionBreak() {
	fmt.Println(d.theme.Separator(strings.Repeat(SectionBreak, d.termWidth)))
}

// padRight pads or truncates s to exactly width runes.
func (d *Display) padRight(s string, width int) string {
	if width < 0 {
		return ""
	}
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

// symbolFor returns the themed glyph for a task status.
func (d *Display) symbolFor(status runstate.TaskStatus) string {
	switch status {
	case runstate.TaskSuccess:
		return d.theme.Success(SymbolSuccess)
	case runstate.TaskFailed:
		return d.theme.Error(SymbolError)
	case runstate.TaskCanceled:
		return d.theme.Warning(SymbolWarning)
	case runstate.TaskSkipped:
		return d.theme.Dim(SymbolSkipped)
	case runstate.TaskRunning:
		return d.theme.Info(SymbolRunning)
	default:
		return d.theme.Dim(SymbolPending)
	}
}

// TaskTable prints a column-aligned table of every task's status, ordered
// alphabetically by id for a stable, diffable rendering.
func (d *Display) TaskTable(state *runstate.RunState) {
	ids := make([]string, 0, len(state.Tasks))
	for id := range state.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("%-4s %-28s %-10s %-9s %-12s %s\n", "", "TASK", "STATUS", "ATTEMPTS", "DURATION", "DETAIL")
	for _, id := range ids {
		ts := state.Tasks[id]
		duration := "-"
		if ts.DurationSec != nil {
			duration = fmt.Sprintf("%.1fs", *ts.DurationSec)
		}
		detail := ts.SkipReason
		if detail == "" && ts.ExitCode != nil {
			detail = fmt.Sprintf("exit %d", *ts.ExitCode)
		}
		if detail == "" && ts.TimedOut {
			detail = "timed out"
		}
		fmt.Printf("%-4s %-28s %-10s %-9d %-12s %s\n",
			d.symbolFor(ts.Status), id, ts.Status, ts.Attempts, duration, detail)
	}
}

// RunSummary prints the run-level header shown above the task table.
func (d *Display) RunSummary(state *runstate.RunState) {
	lines := []string{
		fmt.Sprintf("run:    %s", state.RunID),
		fmt.Sprintf("goal:   %s", state.Goal),
		fmt.Sprintf("status: %s", state.Status),
	}
	if !state.CreatedAt.IsZero() && !state.UpdatedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("age:    %s", state.UpdatedAt.Sub(state.CreatedAt).Round(time.Second)))
	}
	d.Box("RUN", lines...)
}

// Truncate shortens text to max runes, appending an ellipsis if cut.
func Truncate(s string, max int) string {
	s = CleanText(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// CleanText collapses newlines and repeated spaces into single spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}
