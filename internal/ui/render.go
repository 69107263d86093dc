// Package ui renders analysis results and history for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
	"github.com/bryanwahyu/research-camera/internal/domain/history"
	"github.com/bryanwahyu/research-camera/internal/domain/users"
)

// Display writes markdown through glamour.
type Display struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

// NewDisplay picks the auto style on a terminal and plain "notty" output
// otherwise, so piped output stays free of escape codes.
func NewDisplay(out io.Writer) (*Display, error) {
	width := 80
	style := glamour.WithStandardStyle("notty")
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			width = w
		}
		style = glamour.WithAutoStyle()
	}

	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return nil, err
	}
	return &Display{out: out, renderer: renderer}, nil
}

func (d *Display) markdown(md string) error {
	s, err := d.renderer.Render(md)
	if err != nil {
		// fallback: tulis mentah
		_, err = io.WriteString(d.out, md+"\n")
		return err
	}
	_, err = io.WriteString(d.out, s)
	return err
}

// Result prints every section in order under a header naming mode and audience.
func (d *Display) Result(res analysis.Result, mode analysis.Mode, audience analysis.Audience, saved bool) error {
	return d.markdown(ResultMarkdown(res, mode, audience, saved))
}

func ResultMarkdown(res analysis.Result, mode analysis.Mode, audience analysis.Audience, saved bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s · %s\n\n", mode, audience)
	for _, s := range res.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.Title, strings.TrimSpace(s.Content))
	}
	if saved {
		b.WriteString("_Saved to history._\n")
	} else {
		b.WriteString("_Not saved._\n")
	}
	return b.String()
}

// Failure prints the user-facing failure message.
func (d *Display) Failure(msg string) error {
	return d.markdown("> **Analysis failed.** " + msg + "\n")
}

func (d *Display) User(u *users.User) error {
	if u == nil {
		return d.markdown("Not logged in.\n")
	}
	return d.markdown(fmt.Sprintf("Logged in as **%s** (%s).\n", u.Name, u.Email))
}

// HistoryList prints a table, newest first.
func (d *Display) HistoryList(items []history.Item) error {
	return d.markdown(HistoryMarkdown(items))
}

func HistoryMarkdown(items []history.Item) string {
	if len(items) == 0 {
		return "No saved analyses yet.\n"
	}
	var b strings.Builder
	b.WriteString("| # | When | Mode | Audience | Images | First section | ID |\n")
	b.WriteString("|---|------|------|----------|--------|---------------|----|\n")
	for i, it := range items {
		title := "-"
		if len(it.Result.Sections) > 0 {
			title = it.Result.Sections[0].Title
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %s | `%s` |\n",
			i+1,
			time.UnixMilli(it.Timestamp).Format("2006-01-02 15:04"),
			it.Mode, it.Audience, it.ImageCount,
			strings.ReplaceAll(title, "|", "/"),
			it.ID,
		)
	}
	return b.String()
}
