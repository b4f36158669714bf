package mail

import (
	"testing"

	"github.com/sa/gopherlist/internal/patch"
)

// formatPatchBody is the body of a typical git-format-patch mail. Line
// numbers, 0-based:
//
//	0-3   commit message prose
//	5-6   trailer block
//	7     "---" cut line
//	8-9   diffstat
//	11-23 diff block
//	24-25 signature
const formatPatchBody = `index: fix rebuild on empty subjects

When a message arrives with no subject the rebuild pass
dereferences a nil entry.  Guard it.

Fixes: 0123456789ab ("index: build thread keys")
Signed-off-by: Sam Author <sam@example.org>
---
 internal/index/build.go | 4 +++-
 1 file changed, 3 insertions(+), 1 deletion(-)

diff --git a/internal/index/build.go b/internal/index/build.go
index 83a1f00..94b2c11 100644
--- a/internal/index/build.go
+++ b/internal/index/build.go
@@ -40,7 +40,9 @@ func buildKey(msg *Message) string {
 	if msg == nil {
 		return ""
 	}
-	return normalize(msg.Subject)
+	if msg.Subject == "" {
+		return msg.ID
+	}
+	return normalize(msg.Subject)
-- ` + `
2.43.0`

func TestClassify_FormatPatch(t *testing.T) {
	meta := Classify(formatPatchBody)
	if meta == nil {
		t.Fatal("Classify returned nil for a format-patch body")
	}

	if len(meta.DiffSections) != 1 {
		t.Fatalf("got %d diff sections, want 1: %+v", len(meta.DiffSections), meta.DiffSections)
	}
	if got, want := meta.DiffSections[0], (patch.Section{Start: 11, End: 23}); got != want {
		t.Errorf("diff section = %+v, want %+v", got, want)
	}

	if meta.SeparatorLine == nil || *meta.SeparatorLine != 7 {
		t.Errorf("separator = %v, want 7", meta.SeparatorLine)
	}

	if meta.DiffstatSection == nil {
		t.Fatal("diffstat section missing")
	}
	if got, want := *meta.DiffstatSection, (patch.Section{Start: 8, End: 9}); got != want {
		t.Errorf("diffstat section = %+v, want %+v", got, want)
	}

	if len(meta.TrailerSections) != 1 {
		t.Fatalf("got %d trailer sections, want 1: %+v", len(meta.TrailerSections), meta.TrailerSections)
	}
	if got, want := meta.TrailerSections[0], (patch.Section{Start: 5, End: 6}); got != want {
		t.Errorf("trailer section = %+v, want %+v", got, want)
	}
}

func TestClassify_NoDiff(t *testing.T) {
	bodies := []string{
		"",
		"just talking about patches here, none attached",
		"Signed-off-by: Sam Author <sam@example.org>\n\nno diff though",
	}
	for _, body := range bodies {
		if meta := Classify(body); meta != nil {
			t.Errorf("Classify(%.30q) = %+v, want nil", body, meta)
		}
	}
}

func TestClassify_CoverLetterIsNil(t *testing.T) {
	// A cover letter has a diffstat but no diff, so it carries no metadata
	// and is shown unfolded.
	body := `This series reworks the storage layer.

 internal/storage/git.go | 120 ++++++++++----
 internal/db/schema.go   |  40 ++--
 2 files changed, 100 insertions(+), 60 deletions(-)

base-commit: abc123`

	if meta := Classify(body); meta != nil {
		t.Errorf("Classify(cover letter) = %+v, want nil", meta)
	}
}

func TestClassify_PlainUnifiedDiff(t *testing.T) {
	body := `Here is the fix:

--- old/config.c
+++ new/config.c
@@ -1,2 +1,2 @@
-int x = 1;
+int x = 2;`

	meta := Classify(body)
	if meta == nil {
		t.Fatal("Classify returned nil for a ---/+++ diff")
	}
	if len(meta.DiffSections) != 1 {
		t.Fatalf("got %d diff sections, want 1", len(meta.DiffSections))
	}
	if got, want := meta.DiffSections[0], (patch.Section{Start: 2, End: 6}); got != want {
		t.Errorf("diff section = %+v, want %+v", got, want)
	}
	if meta.SeparatorLine != nil {
		t.Errorf("separator = %v, want nil", meta.SeparatorLine)
	}
}

func TestClassify_BareHunk(t *testing.T) {
	body := `try this on top:

@@ -10,4 +10,4 @@
 keep
-drop
+add
 keep

does it help?`

	meta := Classify(body)
	if meta == nil {
		t.Fatal("Classify returned nil for a bare hunk")
	}
	if got, want := meta.DiffSections[0], (patch.Section{Start: 2, End: 6}); got != want {
		t.Errorf("diff section = %+v, want %+v", got, want)
	}
}

func TestClassify_MultiFileDiff(t *testing.T) {
	body := `two files at once
---
diff --git a/a.go b/a.go
--- a/a.go
+++ b/a.go
@@ -1 +1 @@
-old
+new
diff --git a/b.go b/b.go
--- a/b.go
+++ b/b.go
@@ -1 +1 @@
-older
+newer`

	meta := Classify(body)
	if meta == nil {
		t.Fatal("Classify returned nil")
	}
	if len(meta.DiffSections) != 2 {
		t.Fatalf("got %d diff sections, want one per file: %+v", len(meta.DiffSections), meta.DiffSections)
	}
	first, second := meta.DiffSections[0], meta.DiffSections[1]
	if first.Start != 2 || first.End != 7 {
		t.Errorf("first section = %+v, want {2 7}", first)
	}
	if second.Start != 8 || second.End != 13 {
		t.Errorf("second section = %+v, want {8 13}", second)
	}
}

func TestClassify_ProseAfterDiffCloses(t *testing.T) {
	body := `diff --git a/f b/f
index 1111111..2222222 100644
--- a/f
+++ b/f
@@ -1 +1 @@
-a
+b

Does this look right?`

	meta := Classify(body)
	if meta == nil {
		t.Fatal("Classify returned nil")
	}
	if got, want := meta.DiffSections[0], (patch.Section{Start: 0, End: 6}); got != want {
		t.Errorf("diff section = %+v, want %+v (trailing blank trimmed, prose excluded)", got, want)
	}
}

func TestClassify_BlankLineInsideHunk(t *testing.T) {
	// Some mailers strip the leading space from empty context lines.
	body := `diff --git a/f b/f
--- a/f
+++ b/f
@@ -1,3 +1,3 @@
 before

 after
-x
+y`

	meta := Classify(body)
	if meta == nil {
		t.Fatal("Classify returned nil")
	}
	if got, want := meta.DiffSections[0], (patch.Section{Start: 0, End: 8}); got != want {
		t.Errorf("diff section = %+v, want %+v", got, want)
	}
}

func TestClassify_TrailersBelowDiff(t *testing.T) {
	body := `--- a/f
+++ b/f
@@ -1 +1 @@
-a
+b

Acked-by: Cy Acker <cy@example.com>`

	meta := Classify(body)
	if meta == nil {
		t.Fatal("Classify returned nil")
	}
	if len(meta.TrailerSections) != 1 {
		t.Fatalf("got %d trailer sections, want 1", len(meta.TrailerSections))
	}
	if got, want := meta.TrailerSections[0], (patch.Section{Start: 6, End: 6}); got != want {
		t.Errorf("trailer section = %+v, want %+v", got, want)
	}
}

func TestClassify_ExtractRoundTrip(t *testing.T) {
	// Metadata produced here drives extraction there: the extracted text
	// must be exactly the diff block lines.
	meta := Classify(formatPatchBody)
	if meta == nil {
		t.Fatal("Classify returned nil")
	}

	got := patch.Extract(formatPatchBody, meta)
	lines := patch.Lines(got)
	if lines[0] != "diff --git a/internal/index/build.go b/internal/index/build.go" {
		t.Errorf("extract starts with %q", lines[0])
	}
	last := lines[len(lines)-1]
	if last != "+\treturn normalize(msg.Subject)" {
		t.Errorf("extract ends with %q", last)
	}
	if len(lines) != 13 {
		t.Errorf("extracted %d lines, want 13", len(lines))
	}
}
