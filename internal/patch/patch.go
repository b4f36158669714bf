// Package patch extracts unified-diff content embedded in mail message
// bodies. It works on whole-line granularity: a body is split on newlines
// and every result is expressed either as joined lines or as an inclusive
// zero-based line range. All functions are pure and total; malformed or
// out-of-range input is clamped or skipped, never rejected, and "nothing
// found" and "bad input" are indistinguishable to callers.
package patch

import (
	"strings"
	"unicode"
)

// DefaultPreviewLines is how many leading body lines Preview falls back to
// when a message is diff from the very first line.
const DefaultPreviewLines = 3

// Section is an inclusive span of lines inside a message body.
type Section struct {
	Start int `json:"start_line"`
	End   int `json:"end_line"`
}

// Metadata describes where an upstream classifier located patch content
// inside a body. Any field may be empty; a nil Metadata is valid and means
// the classifier found nothing (or never ran).
type Metadata struct {
	DiffSections    []Section `json:"diff_sections"`
	DiffstatSection *Section  `json:"diffstat_section,omitempty"`
	TrailerSections []Section `json:"trailer_sections,omitempty"`
	SeparatorLine   *int      `json:"separator_line,omitempty"`
}

// HasDiffSections reports whether m carries at least one diff section and
// therefore drives extraction instead of the heuristic scan.
func (m *Metadata) HasDiffSections() bool {
	return m != nil && len(m.DiffSections) > 0
}

// sections returns every span m names, with the separator line widened to a
// single-line section.
func (m *Metadata) sections() []Section {
	if m == nil {
		return nil
	}
	out := make([]Section, 0, len(m.DiffSections)+len(m.TrailerSections)+2)
	out = append(out, m.DiffSections...)
	if m.DiffstatSection != nil {
		out = append(out, *m.DiffstatSection)
	}
	out = append(out, m.TrailerSections...)
	if m.SeparatorLine != nil {
		out = append(out, Section{Start: *m.SeparatorLine, End: *m.SeparatorLine})
	}
	return out
}

// Lines splits a body into the indexed line sequence every other function
// in this package operates on.
func Lines(body string) []string {
	return strings.Split(body, "\n")
}

// lastIndex is the highest valid line index of body.
func lastIndex(body string) int {
	return strings.Count(body, "\n")
}

// Extract returns the diff content of a single message. Classifier metadata
// selects lines directly when it names diff sections; otherwise the
// heuristic scan decides.
func Extract(body string, meta *Metadata) string {
	if meta.HasDiffSections() {
		return ExtractSections(body, meta)
	}
	return DetectDiff(body)
}

// ExtractSections collects the lines of every metadata diff section, in the
// order the sections are given. Sections lying entirely outside the body are
// skipped; sections reaching past either edge are clamped to it. The result
// only ever contains lines physically present in body.
func ExtractSections(body string, meta *Metadata) string {
	if body == "" || !meta.HasDiffSections() {
		return ""
	}
	lines := Lines(body)
	last := len(lines) - 1
	var out []string
	for _, sec := range meta.DiffSections {
		if sec.End < 0 || sec.Start > last {
			continue
		}
		start := clamp(sec.Start, 0, last)
		end := clamp(sec.End, 0, last)
		if end < start {
			continue
		}
		out = append(out, lines[start:end+1]...)
	}
	return strings.Join(out, "\n")
}

// diffStartPrefixes mark a line that begins unified-diff content.
var diffStartPrefixes = []string{"diff --git", "---", "+++", "@@"}

// isDiffStart reports whether line looks like the first line of a diff.
func isDiffStart(line string) bool {
	for _, prefix := range diffStartPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// DetectDiff scans a body without usable metadata for the first line that
// starts unified-diff content and returns that line plus everything after
// it. Once diff content begins the rest of the message is taken wholesale,
// including any trailing prose; scanning never transitions back out.
// A body with no diff marker yields "".
func DetectDiff(body string) string {
	if body == "" {
		return ""
	}
	var out []string
	inDiff := false
	for _, line := range Lines(body) {
		if !inDiff && isDiffStart(line) {
			inDiff = true
		}
		if inDiff {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// FoldRange returns the smallest line span covering every metadata section,
// the range a reading UI collapses. Lines [0,Start) are the visible prefix,
// [Start,End] the collapsible block, (End,last] the visible suffix. The
// result is nil when meta names no sections, when body is empty, or when the
// clamped bounds cross (the fold lies entirely outside the body).
func FoldRange(body string, meta *Metadata) *Section {
	secs := meta.sections()
	if body == "" || len(secs) == 0 {
		return nil
	}
	start, end := secs[0].Start, secs[0].End
	for _, sec := range secs[1:] {
		if sec.Start < start {
			start = sec.Start
		}
		if sec.End > end {
			end = sec.End
		}
	}
	last := lastIndex(body)
	start = clamp(start, 0, last)
	end = clamp(end, 0, last)
	if end < start {
		return nil
	}
	return &Section{Start: start, End: end}
}

// Preview returns the lines shown for a collapsed message summary:
// everything before the fold. When the patch starts at line zero the first
// fallbackLines lines of the whole body are returned instead, so the preview
// of a diff-only message is bounded but never empty. Without a fold range
// the body passes through unchanged. fallbackLines <= 0 selects
// DefaultPreviewLines.
func Preview(body string, meta *Metadata, fallbackLines int) string {
	return previewAt(body, FoldRange(body, meta), fallbackLines)
}

// previewAt builds the preview for an already-computed fold range.
func previewAt(body string, fold *Section, fallbackLines int) string {
	if fold == nil {
		return body
	}
	if fallbackLines <= 0 {
		fallbackLines = DefaultPreviewLines
	}
	lines := Lines(body)
	cut := clamp(fold.Start, 0, len(lines))
	if cut > 0 {
		return strings.Join(lines[:cut], "\n")
	}
	if fallbackLines > len(lines) {
		fallbackLines = len(lines)
	}
	return strings.Join(lines[:fallbackLines], "\n")
}

// ThreadMessage is one message of an ordered thread: a stable identifier
// (normally the Message-ID), the body, and whatever the classifier produced
// for it.
type ThreadMessage struct {
	ID   string
	Body string
	Meta *Metadata
}

// ThreadDiff is the combined patch content of a whole thread and the IDs of
// the messages that contributed, in thread order.
type ThreadDiff struct {
	CombinedText string
	Contributing []string
}

// AggregateThread extracts the diff of every message and concatenates the
// non-empty results in input order, one blank line between messages. Results
// are trimmed of trailing whitespace first; messages reduced to nothing drop
// out entirely. No merging, deduplication, or reordering happens here; the
// caller owns thread order.
func AggregateThread(msgs []ThreadMessage) ThreadDiff {
	var agg ThreadDiff
	var parts []string
	for _, msg := range msgs {
		text := strings.TrimRightFunc(Extract(msg.Body, msg.Meta), unicode.IsSpace)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		agg.Contributing = append(agg.Contributing, msg.ID)
	}
	agg.CombinedText = strings.Join(parts, "\n\n")
	return agg
}

// clamp bounds n into [lo, hi].
func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
