package archive

import (
	"errors"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ErrRevisionNotFound is returned when a compared series revision was
// never posted to the thread.
var ErrRevisionNotFound = errors.New("archive: series revision not found")

// CompareLine is one rendered line of a revision comparison.
type CompareLine struct {
	Kind string // "context", "add", "del"
	Text string
}

// RevisionComparison is the line diff between the combined patches of two
// posted revisions of a series, the "what changed between v1 and v2" view.
type RevisionComparison struct {
	RevA    int
	RevB    int
	Lines   []CompareLine
	Added   int
	Removed int
}

// Identical reports whether the two revisions posted byte-identical
// patch content.
func (c *RevisionComparison) Identical() bool {
	return c.Added == 0 && c.Removed == 0
}

// Compare diffs the combined patch content of two series revisions in
// this thread. The diff runs in strict line mode; an interdiff of diffs
// is read line-wise, never character-wise.
func (v *ThreadView) Compare(revA, revB int) (*RevisionComparison, error) {
	series := v.Series()
	var a, b *SeriesRevision
	for i := range series {
		if series[i].Revision == revA {
			a = &series[i]
		}
		if series[i].Revision == revB {
			b = &series[i]
		}
	}
	if a == nil || b == nil {
		return nil, ErrRevisionNotFound
	}

	textA := a.Diff().CombinedText
	textB := b.Diff().CombinedText

	comp := &RevisionComparison{RevA: revA, RevB: revB}

	dmp := diffmatchpatch.New()
	charsA, charsB, lineIndex := dmp.DiffLinesToChars(terminated(textA), terminated(textB))
	diffs := dmp.DiffMain(charsA, charsB, false)
	diffs = dmp.DiffCharsToLines(diffs, lineIndex)

	for _, d := range diffs {
		kind := "context"
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = "add"
		case diffmatchpatch.DiffDelete:
			kind = "del"
		}
		for _, line := range chunkLines(d.Text) {
			comp.Lines = append(comp.Lines, CompareLine{Kind: kind, Text: line})
			switch kind {
			case "add":
				comp.Added++
			case "del":
				comp.Removed++
			}
		}
	}
	return comp, nil
}

// terminated guarantees a trailing newline so the final line diffs as a
// whole line.
func terminated(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// chunkLines splits a diff chunk into its lines, dropping the empty
// remainder after the chunk's trailing newline.
func chunkLines(chunk string) []string {
	lines := strings.Split(chunk, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
