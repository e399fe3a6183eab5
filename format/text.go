// Package format turns posts and notifications into the plain strings the
// TUI and the feed bridge display.
package format

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/muesli/reflow/wordwrap"
)

var (
	// StrictPolicy drops every tag and keeps text. It is safe for concurrent use.
	strict = bluemonday.StrictPolicy()

	lineBreaks = strings.NewReplacer(
		"<br />", "\n",
		"<br/>", "\n",
		"<br>", "\n",
		"</p>", "\n\n",
	)

	singularUnit = regexp.MustCompile(`\b1 (second|minute|hour|day)s\b`)
)

// PlainText converts post HTML into readable text with paragraph breaks.
func PlainText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	text := strict.Sanitize(lineBreaks.Replace(rawHTML))
	return strings.TrimSpace(html.UnescapeString(text))
}

// TimeAgo renders the distance between t and now in the largest whole unit.
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	if diff < 0 {
		diff = 0
	}

	var s string
	switch {
	case diff < time.Minute:
		s = fmt.Sprintf("%d seconds ago", int(diff.Seconds()))
	case diff < time.Hour:
		s = fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		s = fmt.Sprintf("%d hours ago", int(diff.Hours()))
	default:
		s = fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	}
	return Singularize(s)
}

// Singularize fixes "1 hours ago" style strings.
func Singularize(s string) string {
	return singularUnit.ReplaceAllString(s, "1 $1")
}

// Wrap breaks text at word boundaries for the given width.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}

// Truncate shortens s to at most maxLen runes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 3 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// OneLine collapses newlines so a body fits into a single table cell.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
