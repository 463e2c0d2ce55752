// Package cli renders command output for terminals and scripts.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Formatter carries the output writer and its presentation switches. There
// is no package-level output state; every renderer takes a Formatter.
type Formatter struct {
	out   io.Writer
	json  bool
	color bool

	header lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	fail   lipgloss.Style
	muted  lipgloss.Style
}

// NewFormatter colours output only when w is a terminal and noColor is unset.
func NewFormatter(w io.Writer, jsonOutput, noColor bool) *Formatter {
	r := lipgloss.NewRenderer(w)

	return &Formatter{
		out:    w,
		json:   jsonOutput,
		color:  !noColor,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		ok:     r.NewStyle().Foreground(lipgloss.Color("10")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("11")),
		fail:   r.NewStyle().Foreground(lipgloss.Color("9")),
		muted:  r.NewStyle().Faint(true),
	}
}

func (f *Formatter) JSONOutput() bool {
	return f.json
}

func (f *Formatter) JSON(data interface{}) error {
	encoder := json.NewEncoder(f.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) style(s lipgloss.Style, text string) string {
	if !f.color {
		return text
	}
	return s.Render(text)
}

func (f *Formatter) Header(title string) {
	fmt.Fprintln(f.out, f.style(f.header, "=== "+title+" ==="))
}

func (f *Formatter) Section(title string) {
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, f.style(f.header, title+":"))
}

func (f *Formatter) Success(format string, args ...interface{}) {
	fmt.Fprintln(f.out, f.style(f.ok, "[OK] ")+fmt.Sprintf(format, args...))
}

func (f *Formatter) Warning(format string, args ...interface{}) {
	fmt.Fprintln(f.out, f.style(f.warn, "[WARNING] ")+fmt.Sprintf(format, args...))
}

func (f *Formatter) Error(format string, args ...interface{}) {
	fmt.Fprintln(f.out, f.style(f.fail, "[ERROR] ")+fmt.Sprintf(format, args...))
}

func (f *Formatter) Info(format string, args ...interface{}) {
	fmt.Fprintln(f.out, f.style(f.muted, "[INFO] ")+fmt.Sprintf(format, args...))
}

func (f *Formatter) Println(a ...interface{}) {
	fmt.Fprintln(f.out, a...)
}

func (f *Formatter) table() *tabwriter.Writer {
	return tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
}

func (f *Formatter) verdict(ok bool, good, bad string) string {
	if ok {
		return f.style(f.ok, good)
	}
	return f.style(f.warn, bad)
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
