package probe

import (
	"fmt"
	"strings"
)

const delimiterWidth = 60

// Section returns the banner printed before each probe: a blank line, a
// rule, the indented title and another rule.
func Section(title string) string {
	rule := strings.Repeat("=", delimiterWidth)
	return fmt.Sprintf("\n%s\n  %s\n%s\n", rule, title, rule)
}

// Render indents the first maxLines lines of text by two spaces. When lines
// are cut, a trailer states how many. A non-positive maxLines means
// DefaultMaxLines.
func Render(text string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	lines := splitLines(text)
	shown := lines
	if len(lines) > maxLines {
		shown = lines[:maxLines]
	}

	var b strings.Builder
	for _, line := range shown {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(lines) > maxLines {
		fmt.Fprintf(&b, "  ... (%d more lines)\n", len(lines)-maxLines)
	}
	return b.String()
}

// splitLines breaks text on line endings without producing a phantom empty
// line after a trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
