package mail

import (
	"regexp"
	"strings"

	"github.com/sa/gopherlist/internal/patch"
)

// Classify scans a message body and locates its patch components: the diff
// blocks themselves, the diffstat, trailer blocks, and the "---" cut line of
// git-format-patch output. The result feeds extraction and fold computation.
// A body without any diff block yields nil: cover letters and plain
// discussion carry no metadata and stay unfolded.
//
// This is a line classifier, not a diff parser: it never interprets hunk
// counts, only line shapes.
func Classify(body string) *patch.Metadata {
	if body == "" {
		return nil
	}
	lines := patch.Lines(body)

	diffSections := findDiffSections(lines)
	if len(diffSections) == 0 {
		return nil
	}

	meta := &patch.Metadata{DiffSections: diffSections}

	firstDiff := diffSections[0].Start
	if sep := findSeparator(lines, firstDiff); sep >= 0 {
		meta.SeparatorLine = &sep
	}
	meta.DiffstatSection = findDiffstat(lines, firstDiff)

	inDiff := make([]bool, len(lines))
	for _, sec := range diffSections {
		for i := sec.Start; i <= sec.End && i < len(lines); i++ {
			inDiff[i] = true
		}
	}
	meta.TrailerSections = findTrailerSections(lines, inDiff)

	return meta
}

// diffHeaderPrefixes continue a diff section between hunks: extended header
// lines emitted by git for mode changes, renames and binary patches, plus
// the two file header lines.
var diffHeaderPrefixes = []string{
	"index ", "old mode", "new mode", "new file mode", "deleted file mode",
	"similarity index", "dissimilarity index", "rename from", "rename to",
	"copy from", "copy to", "Binary files", "GIT binary patch",
	"--- ", "+++ ",
}

func isDiffHeader(line string) bool {
	for _, prefix := range diffHeaderPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// isHunkContent matches the body lines of a hunk: additions, removals,
// context, and the no-newline marker.
func isHunkContent(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case '+', '-', ' ', '\\':
		return true
	}
	return false
}

// findDiffSections returns the line spans of every diff block, in body
// order. A block starts at a "diff --git" header, at a "---"/"+++" file
// header pair, or at a bare hunk header, and runs until a line no diff
// produces.
func findDiffSections(lines []string) []patch.Section {
	var secs []patch.Section
	start := -1
	sawHunk := false

	close := func(end int) {
		for end >= start && strings.TrimSpace(lines[end]) == "" {
			end--
		}
		if start >= 0 && end >= start {
			secs = append(secs, patch.Section{Start: start, End: end})
		}
		start, sawHunk = -1, false
	}

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			if start >= 0 {
				close(i - 1)
			}
			start = i
		case start < 0 && strings.HasPrefix(line, "--- ") &&
			i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "):
			start = i
		case start < 0 && strings.HasPrefix(line, "@@ -"):
			start = i
			sawHunk = true
		case start >= 0:
			switch {
			case line == "-- ":
				// Signature marker, not a removal line.
				close(i - 1)
			case strings.HasPrefix(line, "@@"):
				sawHunk = true
			case isDiffHeader(line):
			case sawHunk && isHunkContent(line):
			case strings.TrimSpace(line) == "":
				// Tolerated; trimmed off the end when the section closes.
			default:
				close(i - 1)
			}
		}
	}
	close(len(lines) - 1)
	return secs
}

// findSeparator returns the index of the git-format-patch cut line ("---"
// alone) before the first diff block, or -1.
func findSeparator(lines []string, limit int) int {
	for i := 0; i < limit && i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return i
		}
	}
	return -1
}

var (
	reDiffstatEntry   = regexp.MustCompile(`^\s*\S[^|]*\|\s+(\d+|Bin)\b`)
	reDiffstatSummary = regexp.MustCompile(`^\s*\d+ files? changed`)
)

// findDiffstat locates the diffstat block before the first diff: a run of
// "path | N" entry lines closed by the "N files changed" summary. Without
// the summary line nothing qualifies.
func findDiffstat(lines []string, limit int) *patch.Section {
	start := -1
	for i := 0; i < limit && i < len(lines); i++ {
		line := lines[i]
		switch {
		case reDiffstatSummary.MatchString(line):
			if start < 0 {
				start = i
			}
			return &patch.Section{Start: start, End: i}
		case reDiffstatEntry.MatchString(line):
			if start < 0 {
				start = i
			}
		default:
			start = -1
		}
	}
	return nil
}

// findTrailerSections collects runs of recognized trailer lines outside the
// diff blocks, wherever they sit in the body.
func findTrailerSections(lines []string, inDiff []bool) []patch.Section {
	var secs []patch.Section
	start := -1
	flush := func(end int) {
		if start >= 0 && end >= start {
			secs = append(secs, patch.Section{Start: start, End: end})
		}
		start = -1
	}
	for i, line := range lines {
		if !inDiff[i] && IsTrailerLine(line) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i - 1)
	}
	flush(len(lines) - 1)
	return secs
}
