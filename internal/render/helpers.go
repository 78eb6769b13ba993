// Package render produces Graphviz DOT and text listings of structured CFGs.
package render

import (
	"strconv"
	"strings"
)

// dotEscape escapes a string for use in DOT HTML labels.
func dotEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// truncLines keeps the head and tail of a long instruction listing.
func truncLines(lines []string, max int) []string {
	if len(lines) <= max {
		return lines
	}
	keep := max / 2
	out := append([]string{}, lines[:keep]...)
	out = append(out, "... ("+strconv.Itoa(len(lines)-2*keep)+" more)")
	return append(out, lines[len(lines)-keep:]...)
}
