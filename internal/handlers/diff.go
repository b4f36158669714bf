package handlers

import "strings"

// DiffLine represents a single line in a rendered patch.
type DiffLine struct {
	Type    string // "add", "remove", "context", "header", "hunk"
	Content string
}

// parseDiff classifies the lines of unified-diff text for display.
// The input is patch content extracted from mail bodies, so anything
// between file headers (commit prose, diffstat) classifies as context.
func parseDiff(diff string) []DiffLine {
	var lines []DiffLine
	for _, line := range strings.Split(diff, "\n") {
		var dl DiffLine
		switch {
		case strings.HasPrefix(line, "diff --git"), strings.HasPrefix(line, "index "),
			strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"),
			strings.HasPrefix(line, "new file mode"), strings.HasPrefix(line, "deleted file mode"),
			strings.HasPrefix(line, "rename from"), strings.HasPrefix(line, "rename to"):
			dl.Type = "header"
		case strings.HasPrefix(line, "@@"):
			dl.Type = "hunk"
		case strings.HasPrefix(line, "+"):
			dl.Type = "add"
		case strings.HasPrefix(line, "-"):
			dl.Type = "remove"
		default:
			dl.Type = "context"
		}
		dl.Content = line
		lines = append(lines, dl)
	}
	return lines
}
