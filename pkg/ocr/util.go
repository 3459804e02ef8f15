package ocr

import "strings"

// snippet returns at most max bytes of text for logging, never splitting a rune.
func snippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	cut := 0
	for i := range s {
		if i > max {
			break
		}
		cut = i
	}
	return s[:cut] + "…"
}

// flatten joins the lines of text with spaces.
func flatten(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}

// splitLines splits text on newlines and trims every line.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

func strPtr(s string) *string { return &s }
