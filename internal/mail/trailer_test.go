package mail

import (
	"testing"
)

func TestParseTrailer_SignedOffBy(t *testing.T) {
	tr, ok := ParseTrailer("Signed-off-by: Sam Author <sam@example.org>")
	if !ok {
		t.Fatal("ParseTrailer returned false for a signed-off-by line")
	}
	if tr.Name != "Signed-off-by" {
		t.Errorf("name = %q, want %q", tr.Name, "Signed-off-by")
	}
	if tr.Value != "Sam Author <sam@example.org>" {
		t.Errorf("value = %q", tr.Value)
	}
	if tr.Email != "sam@example.org" {
		t.Errorf("email = %q, want %q", tr.Email, "sam@example.org")
	}
}

func TestParseTrailer_RejectsProse(t *testing.T) {
	lines := []string{
		"Note: this only matters on 32-bit builds",
		"Subject: [PATCH] not a trailer",
		"just a sentence with a colon: here",
		"Signed-off-by:",
		"",
	}
	for _, line := range lines {
		if _, ok := ParseTrailer(line); ok {
			t.Errorf("ParseTrailer(%q) = true, want false", line)
		}
	}
}

func TestParseTrailer_FixesLine(t *testing.T) {
	tr, ok := ParseTrailer(`Fixes: 0123456789ab ("index: handle empty subjects")`)
	if !ok {
		t.Fatal("ParseTrailer returned false for a Fixes line")
	}
	if tr.Email != "" {
		t.Errorf("email = %q, want empty", tr.Email)
	}
	if tr.Value == "" {
		t.Error("value is empty")
	}
}

func TestParseTrailer_EmailWithoutAngleBrackets(t *testing.T) {
	tr, ok := ParseTrailer("Reported-by: syzbot+abc@syzkaller.appspotmail.com")
	if !ok {
		t.Fatal("ParseTrailer returned false")
	}
	if tr.Email != "syzbot+abc@syzkaller.appspotmail.com" {
		t.Errorf("email = %q", tr.Email)
	}
}

func TestParseTrailers_Order(t *testing.T) {
	text := `Reviewed-by: Ana Reviewer <ana@example.org>
Tested-by: Bo Tester <bo@example.net>

Some prose in between.
Acked-by: Cy Acker <cy@example.com>`

	trailers := ParseTrailers(text)
	if len(trailers) != 3 {
		t.Fatalf("got %d trailers, want 3", len(trailers))
	}

	expected := []string{"Reviewed-by", "Tested-by", "Acked-by"}
	for i, want := range expected {
		if trailers[i].Name != want {
			t.Errorf("trailer %d name = %q, want %q", i, trailers[i].Name, want)
		}
	}
}

func TestTrailer_String(t *testing.T) {
	tr, ok := ParseTrailer("  Acked-by: Cy Acker <cy@example.com>")
	if !ok {
		t.Fatal("ParseTrailer returned false")
	}
	want := "Acked-by: Cy Acker <cy@example.com>"
	if tr.String() != want {
		t.Errorf("String() = %q, want %q", tr.String(), want)
	}
}

func TestIsTrailerLine_CaseInsensitiveName(t *testing.T) {
	if !IsTrailerLine("SIGNED-OFF-BY: X <x@example.org>") {
		t.Error("uppercase trailer name not recognized")
	}
	if IsTrailerLine("Random-Header: value") {
		t.Error("unknown trailer name recognized")
	}
}
