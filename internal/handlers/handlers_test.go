package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/storage"
	"github.com/sa/gopherlist/internal/testutil"
)

// Fixture messages for one dev thread: a two-patch v1 series, a review
// reply, a two-patch v2 respin, and one standalone announcement.

const msgPatch1 = `From: Alice Dev <alice@example.org>
To: dev@lists.example.org
Subject: [PATCH 1/2] parser: handle folded headers
Date: Mon, 03 Feb 2025 10:00:00 +0000
Message-ID: <patch-1@example.org>

The parser previously mangled continuation lines.

Signed-off-by: Alice Dev <alice@example.org>
---
 parser.go | 2 +-
 1 file changed, 1 insertion(+), 1 deletion(-)

diff --git a/parser.go b/parser.go
index 1111111..2222222 100644
--- a/parser.go
+++ b/parser.go
@@ -1,3 +1,3 @@
 package parser
-var folded = false
+var folded = true
`

const msgPatch2 = `From: Alice Dev <alice@example.org>
To: dev@lists.example.org
Subject: [PATCH 2/2] parser: reject empty message ids
Date: Mon, 03 Feb 2025 10:01:00 +0000
Message-ID: <patch-2@example.org>
In-Reply-To: <patch-1@example.org>
References: <patch-1@example.org>

A message without an id cannot be archived.

diff --git a/parser.go b/parser.go
index 2222222..3333333 100644
--- a/parser.go
+++ b/parser.go
@@ -1,3 +1,4 @@
 package parser
 var folded = true
+var strict = true
`

const msgReview = `From: Bob Reviewer <bob@example.org>
To: dev@lists.example.org
Subject: Re: [PATCH 1/2] parser: handle folded headers
Date: Mon, 03 Feb 2025 11:00:00 +0000
Message-ID: <review-1@example.org>
In-Reply-To: <patch-1@example.org>
References: <patch-1@example.org>

Looks good to me, one nit below.

Reviewed-by: Bob Reviewer <bob@example.org>
`

const msgV2Patch1 = `From: Alice Dev <alice@example.org>
To: dev@lists.example.org
Subject: [PATCH v2 1/2] parser: handle folded headers
Date: Mon, 03 Feb 2025 12:00:00 +0000
Message-ID: <patch-1v2@example.org>
References: <patch-1@example.org>

The parser previously mangled continuation lines.

diff --git a/parser.go b/parser.go
index 1111111..4444444 100644
--- a/parser.go
+++ b/parser.go
@@ -1,3 +1,3 @@
 package parser
-var folded = false
+var folded = true // RFC 5322 unfolding
`

const msgV2Patch2 = `From: Alice Dev <alice@example.org>
To: dev@lists.example.org
Subject: [PATCH v2 2/2] parser: reject empty message ids
Date: Mon, 03 Feb 2025 12:01:00 +0000
Message-ID: <patch-2v2@example.org>
References: <patch-1@example.org> <patch-1v2@example.org>

A message without an id cannot be archived.

diff --git a/parser.go b/parser.go
index 4444444..5555555 100644
--- a/parser.go
+++ b/parser.go
@@ -1,3 +1,4 @@
 package parser
 var folded = true // RFC 5322 unfolding
+var strict = true
`

const msgNotice = `From: Carol Admin <carol@example.org>
To: dev@lists.example.org
Subject: Maintenance window on Friday
Date: Wed, 05 Feb 2025 09:00:00 +0000
Message-ID: <notice-1@example.org>

The archive will be read-only for an hour while we move hosts.
`

// mboxOf joins raw messages into an mboxrd stream.
func mboxOf(msgs ...string) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString("From mboxrd@z Thu Jan  1 00:00:00 1970\n")
		b.WriteString(m)
		if !strings.HasSuffix(m, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func devMbox() string {
	return mboxOf(msgPatch1, msgPatch2, msgReview, msgV2Patch1, msgV2Patch2, msgNotice)
}

var seedAuthor = storage.Author{Name: "archive", Email: "archive@example.org"}

// seedArchive registers the dev list, imports the fixture mbox, and
// returns the id of the patch thread.
func seedArchive(t *testing.T, env *testutil.TestEnv) int64 {
	t.Helper()

	list := testutil.CreateTestList(t, env.DB, "dev", "dev@lists.example.org")
	_, err := env.Server.Archive.ImportMbox(context.Background(), "dev", strings.NewReader(devMbox()), seedAuthor)
	if err != nil {
		t.Fatalf("seed import failed: %v", err)
	}

	thread, err := env.DB.Queries.GetThreadByRoot(context.Background(), db.GetThreadByRootParams{
		ListID:        list.ID,
		RootMessageID: "patch-1@example.org",
	})
	if err != nil {
		t.Fatalf("seed thread lookup failed: %v", err)
	}
	return thread.ID
}

// noticeThreadID returns the id of the standalone announcement thread.
func noticeThreadID(t *testing.T, env *testutil.TestEnv) int64 {
	t.Helper()
	list, err := env.DB.Queries.GetListByName(context.Background(), "dev")
	if err != nil {
		t.Fatalf("list lookup failed: %v", err)
	}
	thread, err := env.DB.Queries.GetThreadByRoot(context.Background(), db.GetThreadByRootParams{
		ListID:        list.ID,
		RootMessageID: "notice-1@example.org",
	})
	if err != nil {
		t.Fatalf("notice thread lookup failed: %v", err)
	}
	return thread.ID
}

// --- JSON endpoint tests ---

func TestHealthCheck(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/-/health", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
	if resp["version"] != "test" {
		t.Errorf("version = %q, want %q", resp["version"], "test")
	}
}

// --- Auth handler tests ---

func TestLogin_Get(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/-/login", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestLogin_Post_InvalidCredentials(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	form := url.Values{
		"email":    {"bad@example.com"},
		"password": {"wrongpassword"},
	}
	req := httptest.NewRequest("POST", "/-/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	// Should re-render login form (200), not redirect
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d (re-rendered form)", w.Code, http.StatusOK)
	}
}

func TestLogin_Post_ValidCredentials(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	// CreateTestUser stores the password verbatim, so set a real hash
	// through the auth service before logging in.
	user := testutil.CreateTestUser(t, env.DB, testutil.UserOpts{
		Email:     "valid@example.com",
		Approved:  true,
		AllowRead: true,
	})
	env.Server.Auth.UpdatePassword(context.Background(), user.ID, "testpassword123")

	form := url.Values{
		"email":    {"valid@example.com"},
		"password": {"testpassword123"},
	}
	req := httptest.NewRequest("POST", "/-/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d (redirect after login)", w.Code, http.StatusFound)
	}
}

func TestRegister_Get(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/-/register", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRegister_Post_Success(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	form := url.Values{
		"name":      {"New User"},
		"email":     {"newuser@example.com"},
		"password":  {"securepassword123"},
		"password2": {"securepassword123"},
	}
	req := httptest.NewRequest("POST", "/-/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d (redirect after register)", w.Code, http.StatusFound)
	}
}

func TestRegister_Post_PasswordMismatch(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	form := url.Values{
		"name":      {"New User"},
		"email":     {"newuser@example.com"},
		"password":  {"password123"},
		"password2": {"different456"},
	}
	req := httptest.NewRequest("POST", "/-/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	// Should re-render form (200)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d (re-rendered form)", w.Code, http.StatusOK)
	}
}

func TestRegister_Disabled(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	env.Server.Config.DisableRegistration = true

	req := httptest.NewRequest("GET", "/-/register", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d (redirect when disabled)", w.Code, http.StatusFound)
	}
}

func TestLogout(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/-/logout", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusFound)
	}
	loc := w.Header().Get("Location")
	if loc != "/" {
		t.Errorf("Location = %q, want %q", loc, "/")
	}
}

// --- Front page and list view tests ---

func TestIndex_Empty(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestIndex_ListsShown(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "dev") {
		t.Error("front page should contain the list name")
	}
	if !strings.Contains(body, "dev@lists.example.org") {
		t.Error("front page should contain the list address")
	}
}

func TestIndex_HiddenListExcluded(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	_, err := env.DB.Queries.CreateList(context.Background(), db.CreateListParams{
		Name:     "private",
		Address:  "private@lists.example.org",
		IsHidden: db.NullBool(true),
	})
	if err != nil {
		t.Fatalf("failed to create hidden list: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.Contains(w.Body.String(), "private@lists.example.org") {
		t.Error("hidden list should not appear on the front page")
	}
}

func TestListView(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/dev", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "parser: handle folded headers") {
		t.Error("thread index should contain the thread subject")
	}
	if !strings.Contains(body, "badge-patch") {
		t.Error("patch threads should carry the patch badge")
	}
	if !strings.Contains(body, "Maintenance window on Friday") {
		t.Error("thread index should contain the announcement thread")
	}
}

func TestListView_NotFound(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListView_PastLastPage(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	// An out-of-range page renders empty rather than erroring
	req := httptest.NewRequest("GET", "/dev?page=999", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- Thread view tests ---

func TestThreadView(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	threadID := seedArchive(t, env)

	req := httptest.NewRequest("GET", fmt.Sprintf("/dev/t/%d", threadID), nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "parser: handle folded headers") {
		t.Error("thread view should contain the subject")
	}
	if !strings.Contains(body, "Looks good to me") {
		t.Error("thread view should contain the review reply body")
	}
	// Patch content folds behind a details element
	if !strings.Contains(body, "of patch content") {
		t.Error("thread view should fold patch content")
	}
	// Messages with diffs feed the combined patch panel
	if !strings.Contains(body, "Combined patch") {
		t.Error("thread view should show the combined patch panel")
	}
}

func TestThreadView_NotFound(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/dev/t/99999", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestThreadPatch(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	threadID := seedArchive(t, env)

	req := httptest.NewRequest("GET", fmt.Sprintf("/dev/t/%d.patch", threadID), nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), ".patch") {
		t.Error("Content-Disposition should name a .patch file")
	}
	if !strings.Contains(w.Body.String(), "diff --git a/parser.go b/parser.go") {
		t.Error("combined patch should contain the diff")
	}
}

func TestThreadPatch_Revision(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	threadID := seedArchive(t, env)

	req := httptest.NewRequest("GET", fmt.Sprintf("/dev/t/%d.patch?rev=2", threadID), nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "RFC 5322 unfolding") {
		t.Error("rev=2 should serve the v2 patch content")
	}

	// Unknown revision
	req = httptest.NewRequest("GET", fmt.Sprintf("/dev/t/%d.patch?rev=9", threadID), nil)
	w = httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("rev=9 status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestThreadPatch_NoPatchContent(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)
	noticeID := noticeThreadID(t, env)

	req := httptest.NewRequest("GET", fmt.Sprintf("/dev/t/%d.patch", noticeID), nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d for a patchless thread", w.Code, http.StatusNotFound)
	}
}

func TestThreadSeries(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	threadID := seedArchive(t, env)

	req := httptest.NewRequest("GET", fmt.Sprintf("/dev/t/%d/series", threadID), nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "download v2 patch") {
		t.Error("series view should link the v2 patch download")
	}
	// Two revisions make the compare form appear
	if !strings.Contains(body, "Compare revisions") {
		t.Error("series view should offer revision comparison")
	}
}

func TestThreadSeries_Compare(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	threadID := seedArchive(t, env)

	req := httptest.NewRequest("GET", fmt.Sprintf("/dev/t/%d/series?a=1&b=2", threadID), nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	// v2 changed one line in patch 1/2, so the revisions differ
	if !strings.Contains(w.Body.String(), "v1 &rarr; v2") {
		t.Error("comparison header should render")
	}
}

func TestThreadSeries_NoSeries(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)
	noticeID := noticeThreadID(t, env)

	req := httptest.NewRequest("GET", fmt.Sprintf("/dev/t/%d/series", noticeID), nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "no patch series") {
		t.Error("series view of a patchless thread should say so")
	}
}

// --- Message view tests ---

func TestMessageView(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/dev/m/patch-1@example.org", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "parser: handle folded headers") {
		t.Error("message view should contain the subject")
	}
	if !strings.Contains(body, "Alice Dev") {
		t.Error("message view should contain the author")
	}
	if !strings.Contains(body, "Signed-off-by") {
		t.Error("message view should show the trailers")
	}
}

func TestMessageView_EscapedID(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	// Links escape the message id, so the encoded form must resolve too
	req := httptest.NewRequest("GET", "/dev/m/patch-1%40example.org", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d for escaped message id", w.Code, http.StatusOK)
	}
}

func TestMessageView_NotFound(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/dev/m/missing@example.org", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMessageRaw(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/dev/m/patch-1@example.org/raw", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Message-ID: <patch-1@example.org>") {
		t.Error("raw view should serve the stored RFC 822 message")
	}
}

func TestMessagePatch(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/dev/m/patch-1@example.org/patch", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "diff --git a/parser.go b/parser.go") {
		t.Error("patch download should contain the diff")
	}
}

func TestMessagePatch_NoPatch(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/dev/m/notice-1@example.org/patch", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d for a patchless message", w.Code, http.StatusNotFound)
	}
}

// --- Search tests ---

func TestSearch_WithResults(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/-/search?query=folded", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "parser: handle folded headers") {
		t.Error("search results should include the matching message")
	}
}

func TestSearch_NoResults(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/-/search?query=nonexistentkeyword12345", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "No messages match") {
		t.Error("empty result set should say so")
	}
}

func TestListSearch(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/dev/search?query=continuation", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "parser: handle folded headers") {
		t.Error("list search should match on the body text")
	}
}

// --- Permission enforcement tests ---

func TestReadProtection(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	env.Server.Config.ReadAccess = "REGISTERED"
	seedArchive(t, env)

	// Anonymous request (no session cookie)
	req := httptest.NewRequest("GET", "/dev", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d (redirect to login)", w.Code, http.StatusFound)
	}
	loc := w.Header().Get("Location")
	if !strings.Contains(loc, "/-/login") {
		t.Errorf("Location = %q, should contain '/-/login'", loc)
	}
}

func TestReadProtection_FrontPage(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	env.Server.Config.ReadAccess = "REGISTERED"

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d (redirect to login)", w.Code, http.StatusFound)
	}
}

func TestModerateProtection_Anonymous(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("POST", "/dev/m/patch-1@example.org/hide", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d (redirect to login)", w.Code, http.StatusFound)
	}
}

func TestModerateProtection_RegularUser(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)
	cookies := loginAsUser(t, env, "reader@example.com")

	req := requestWithCookies("POST", "/dev/m/patch-1@example.org/hide", strings.NewReader(""), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d (forbidden without moderate permission)", w.Code, http.StatusForbidden)
	}
}

func TestImportProtection_Anonymous(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("POST", "/dev/import", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d (redirect to login)", w.Code, http.StatusFound)
	}
}

func TestAdminProtection(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/-/admin", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d (redirect to login for anonymous)", w.Code, http.StatusFound)
	}
}

func TestAdminProtection_NonAdmin(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsUser(t, env, "nonadmin@example.com")

	req := requestWithCookies("GET", "/-/admin", nil, cookies)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d (forbidden for non-admin)", w.Code, http.StatusForbidden)
	}
}

// --- Moderation tests ---

func TestMessageHideUnhide(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)
	cookies := loginAsAdmin(t, env)

	req := requestWithCookies("POST", "/dev/m/review-1@example.org/hide", strings.NewReader(""), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("hide status = %d, want %d", w.Code, http.StatusFound)
	}

	list, _ := env.DB.Queries.GetListByName(context.Background(), "dev")
	row, err := env.DB.Queries.GetMessageByMessageID(context.Background(), db.GetMessageByMessageIDParams{
		ListID:    list.ID,
		MessageID: "review-1@example.org",
	})
	if err != nil {
		t.Fatalf("message lookup failed: %v", err)
	}
	if !row.IsHidden.Bool {
		t.Error("message should be hidden after hide")
	}

	// Unhide restores it
	req = requestWithCookies("POST", "/dev/m/review-1@example.org/unhide", strings.NewReader(""), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("unhide status = %d, want %d", w.Code, http.StatusFound)
	}

	row, _ = env.DB.Queries.GetMessageByMessageID(context.Background(), db.GetMessageByMessageIDParams{
		ListID:    list.ID,
		MessageID: "review-1@example.org",
	})
	if row.IsHidden.Bool {
		t.Error("message should be visible after unhide")
	}
}

func TestHiddenMessageLeavesThread(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	threadID := seedArchive(t, env)
	cookies := loginAsAdmin(t, env)

	req := requestWithCookies("POST", "/dev/m/review-1@example.org/hide", strings.NewReader(""), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	if w.Code != http.StatusFound {
		t.Fatalf("hide status = %d, want %d", w.Code, http.StatusFound)
	}

	req = httptest.NewRequest("GET", fmt.Sprintf("/dev/t/%d", threadID), nil)
	w = httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("thread status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.Contains(w.Body.String(), "Looks good to me") {
		t.Error("hidden message should not render in the thread")
	}
}

// --- Mbox import tests ---

const msgExtra = `From: Dave Late <dave@example.org>
To: dev@lists.example.org
Subject: Uploaded after the fact
Date: Thu, 06 Feb 2025 09:00:00 +0000
Message-ID: <extra-1@example.org>

This message arrives through the upload form.
`

func TestListImport(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	list := testutil.CreateTestList(t, env.DB, "dev", "dev@lists.example.org")
	cookies := loginAsAdmin(t, env)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("mbox", "upload.mbox")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write([]byte(mboxOf(msgExtra)))
	writer.Close()

	req := httptest.NewRequest("POST", "/dev/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, http.StatusFound, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/dev" {
		t.Errorf("Location = %q, want %q", loc, "/dev")
	}

	count, err := env.DB.Queries.CountMessagesByList(context.Background(), list.ID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("indexed messages = %d, want 1", count)
	}
}

func TestListImport_UnknownList(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("mbox", "upload.mbox")
	part.Write([]byte(mboxOf(msgExtra)))
	writer.Close()

	req := httptest.NewRequest("POST", "/nonexistent/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListImport_MissingFile(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	testutil.CreateTestList(t, env.DB, "dev", "dev@lists.example.org")
	cookies := loginAsAdmin(t, env)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("note", "no file attached")
	writer.Close()

	req := httptest.NewRequest("POST", "/dev/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- Feed/sitemap tests ---

func TestRSSFeed(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/-/feed.rss", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "rss+xml") {
		t.Errorf("Content-Type = %q, should contain 'rss+xml'", ct)
	}
	if !strings.Contains(w.Body.String(), "Maintenance window on Friday") {
		t.Error("feed should contain the newest message subject")
	}
}

func TestAtomFeed(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/-/feed.atom", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "atom+xml") {
		t.Errorf("Content-Type = %q, should contain 'atom+xml'", ct)
	}
	if !strings.Contains(w.Body.String(), "<entry>") {
		t.Error("atom feed should carry entries")
	}
}

func TestListAtomFeed(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/dev/feed.atom", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "parser: handle folded headers") {
		t.Error("list feed should contain list messages")
	}
}

func TestListAtomFeed_NotFound(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/nonexistent/feed.atom", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSitemap(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/-/sitemap.xml", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "xml") {
		t.Errorf("Content-Type = %q, should contain 'xml'", ct)
	}
	if !strings.Contains(w.Body.String(), "/dev</loc>") {
		t.Error("sitemap should list the dev archive")
	}
}

func TestRobotsTxt(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/-/robots.txt", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Sitemap:") {
		t.Errorf("body should contain 'Sitemap:', got %q", body)
	}
}

func TestRobotsTxt_Disallow(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	env.Server.Config.RobotsTxt = "disallow"

	req := httptest.NewRequest("GET", "/-/robots.txt", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "Disallow: /") {
		t.Error("disallow mode should block crawlers")
	}
}

// --- Read-only view tests ---

func TestAbout(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/-/about", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestChangelog(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)

	req := httptest.NewRequest("GET", "/-/changelog", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Import 6 messages into dev") {
		t.Error("changelog should contain the import commit message")
	}
}

func TestChangelog_EmptyArchive(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/-/changelog", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- Settings tests ---

func TestSettings_RequiresLogin(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	req := httptest.NewRequest("GET", "/-/settings", nil)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d (redirect to login)", w.Code, http.StatusFound)
	}
}

func TestSettings_UpdateName(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsUser(t, env, "renameme@example.com")

	form := url.Values{
		"action": {"update_name"},
		"name":   {"Renamed User"},
	}
	req := requestWithCookies("POST", "/-/settings", strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	user, err := env.Server.Auth.GetUserByEmail(context.Background(), "renameme@example.com")
	if err != nil {
		t.Fatalf("user lookup failed: %v", err)
	}
	if user.Name != "Renamed User" {
		t.Errorf("name = %q, want %q", user.Name, "Renamed User")
	}
}

func TestSettings_ChangePassword(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsUser(t, env, "rotate@example.com")

	form := url.Values{
		"action":           {"change_password"},
		"current_password": {"userpassword123"},
		"new_password":     {"brandnewpassword1"},
		"confirm_password": {"brandnewpassword1"},
	}
	req := requestWithCookies("POST", "/-/settings", strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	// The new password logs in
	loginForm := url.Values{
		"email":    {"rotate@example.com"},
		"password": {"brandnewpassword1"},
	}
	loginReq := httptest.NewRequest("POST", "/-/login", strings.NewReader(loginForm.Encode()))
	loginReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	loginW := httptest.NewRecorder()
	env.Router.ServeHTTP(loginW, loginReq)
	if loginW.Code != http.StatusFound {
		t.Errorf("login with new password: status = %d, want %d", loginW.Code, http.StatusFound)
	}
}

func TestSettings_ChangePassword_WrongCurrent(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsUser(t, env, "wrongpw@example.com")

	form := url.Values{
		"action":           {"change_password"},
		"current_password": {"notmypassword"},
		"new_password":     {"brandnewpassword1"},
		"confirm_password": {"brandnewpassword1"},
	}
	req := requestWithCookies("POST", "/-/settings", strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	// The old password still works
	loginForm := url.Values{
		"email":    {"wrongpw@example.com"},
		"password": {"userpassword123"},
	}
	loginReq := httptest.NewRequest("POST", "/-/login", strings.NewReader(loginForm.Encode()))
	loginReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	loginW := httptest.NewRecorder()
	env.Router.ServeHTTP(loginW, loginReq)
	if loginW.Code != http.StatusFound {
		t.Errorf("login with old password: status = %d, want %d", loginW.Code, http.StatusFound)
	}
}

// --- Test helpers for authenticated requests ---

// loginAsAdmin creates an admin user, logs in, and returns session cookies.
func loginAsAdmin(t *testing.T, env *testutil.TestEnv) []*http.Cookie {
	t.Helper()
	user := testutil.CreateTestUser(t, env.DB, testutil.UserOpts{
		Email:         "admin@example.com",
		Admin:         true,
		Approved:      true,
		AllowRead:     true,
		AllowModerate: true,
		AllowImport:   true,
	})
	env.Server.Auth.UpdatePassword(context.Background(), user.ID, "adminpassword123")

	form := url.Values{
		"email":    {"admin@example.com"},
		"password": {"adminpassword123"},
	}
	req := httptest.NewRequest("POST", "/-/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("admin login failed: status = %d, want %d", w.Code, http.StatusFound)
	}
	return w.Result().Cookies()
}

// loginAsUser creates a regular user, logs in, and returns session cookies.
func loginAsUser(t *testing.T, env *testutil.TestEnv, email string) []*http.Cookie {
	t.Helper()
	user := testutil.CreateTestUser(t, env.DB, testutil.UserOpts{
		Email:     email,
		Approved:  true,
		AllowRead: true,
	})
	env.Server.Auth.UpdatePassword(context.Background(), user.ID, "userpassword123")

	form := url.Values{
		"email":    {email},
		"password": {"userpassword123"},
	}
	req := httptest.NewRequest("POST", "/-/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("user login failed: status = %d, want %d", w.Code, http.StatusFound)
	}
	return w.Result().Cookies()
}

// requestWithCookies creates a request and attaches session cookies.
func requestWithCookies(method, path string, body *strings.Reader, cookies []*http.Cookie) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// waitForIngest blocks until the background ingest slot is free.
func waitForIngest(t *testing.T, env *testutil.TestEnv) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !env.Server.Archive.Status().Running {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("ingest did not finish in time")
}

// --- Admin dashboard tests ---

func TestAdminDashboard(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	req := requestWithCookies("GET", "/-/admin", nil, cookies)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Admin") {
		t.Error("admin dashboard should contain 'Admin'")
	}
}

// --- Admin user management tests ---

func TestAdminUsers_List(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	// Create an extra user to verify listing
	testutil.CreateTestUser(t, env.DB, testutil.UserOpts{
		Email:    "listed@example.com",
		Name:     "Listed User",
		Approved: true,
	})

	req := requestWithCookies("GET", "/-/admin/users", nil, cookies)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Listed User") {
		t.Error("admin users page should contain 'Listed User'")
	}
}

func TestAdminUserEdit(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	user := testutil.CreateTestUser(t, env.DB, testutil.UserOpts{
		Email:    "editable@example.com",
		Name:     "Editable User",
		Approved: true,
	})

	req := requestWithCookies("GET", fmt.Sprintf("/-/admin/users/%d", user.ID), nil, cookies)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Editable User") {
		t.Error("admin user edit page should contain user name")
	}
}

func TestAdminUserSave(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	user := testutil.CreateTestUser(t, env.DB, testutil.UserOpts{
		Email:    "saveme@example.com",
		Name:     "Save Me",
		Approved: true,
	})

	form := url.Values{
		"name":           {"Updated Name"},
		"is_approved":    {"on"},
		"allow_read":     {"on"},
		"allow_moderate": {"on"},
	}
	req := requestWithCookies("POST", fmt.Sprintf("/-/admin/users/%d", user.ID), strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	// Verify the update persisted
	updated, err := env.DB.Queries.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}
	if updated.Name != "Updated Name" {
		t.Errorf("name = %q, want %q", updated.Name, "Updated Name")
	}
	if !updated.AllowModerate.Bool {
		t.Error("user should have moderate permission after update")
	}
	if updated.AllowImport.Bool {
		t.Error("unchecked import permission should save as false")
	}
}

func TestAdminUserSave_NonAdmin(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsUser(t, env, "regular@example.com")

	form := url.Values{"name": {"Hacked"}}
	req := requestWithCookies("POST", "/-/admin/users/1", strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d (forbidden for non-admin)", w.Code, http.StatusForbidden)
	}
}

func TestAdminUserDelete(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	user := testutil.CreateTestUser(t, env.DB, testutil.UserOpts{
		Email:    "deletable@example.com",
		Name:     "Deletable User",
		Approved: true,
	})

	req := requestWithCookies("POST", fmt.Sprintf("/-/admin/users/%d/delete", user.ID), strings.NewReader(""), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	_, err := env.DB.Queries.GetUserByID(context.Background(), user.ID)
	if err == nil {
		t.Error("user should be deleted from DB")
	}
}

func TestAdminUserDelete_Self(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	admin, err := env.Server.Auth.GetUserByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("admin lookup failed: %v", err)
	}

	req := requestWithCookies("POST", fmt.Sprintf("/-/admin/users/%d/delete", admin.ID), strings.NewReader(""), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	// The account survives
	if _, err := env.DB.Queries.GetUserByID(context.Background(), admin.ID); err != nil {
		t.Error("admin should not be able to delete their own account")
	}
}

// --- Admin list management tests ---

func TestAdminLists(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)
	cookies := loginAsAdmin(t, env)

	// Hidden lists show up in the admin view
	env.DB.Queries.CreateList(context.Background(), db.CreateListParams{
		Name:     "private",
		Address:  "private@lists.example.org",
		IsHidden: db.NullBool(true),
	})

	req := requestWithCookies("GET", "/-/admin/lists", nil, cookies)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "dev@lists.example.org") {
		t.Error("admin lists page should contain the dev list")
	}
	if !strings.Contains(body, "private@lists.example.org") {
		t.Error("admin lists page should include hidden lists")
	}
}

func TestAdminListCreate(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	form := url.Values{
		"name":        {"announce"},
		"address":     {"announce@lists.example.org"},
		"description": {"Release announcements."},
	}
	req := requestWithCookies("POST", "/-/admin/lists", strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	list, err := env.DB.Queries.GetListByName(context.Background(), "announce")
	if err != nil {
		t.Fatalf("created list not found: %v", err)
	}
	if list.Address != "announce@lists.example.org" {
		t.Errorf("address = %q, want %q", list.Address, "announce@lists.example.org")
	}
}

func TestAdminListCreate_ReservedName(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	// "static" collides with the asset route prefix
	form := url.Values{
		"name":    {"static"},
		"address": {"static@lists.example.org"},
	}
	req := requestWithCookies("POST", "/-/admin/lists", strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	if _, err := env.DB.Queries.GetListByName(context.Background(), "static"); err == nil {
		t.Error("reserved list name should not be created")
	}
}

func TestAdminListCreate_Duplicate(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	testutil.CreateTestList(t, env.DB, "dev", "dev@lists.example.org")
	cookies := loginAsAdmin(t, env)

	form := url.Values{
		"name":    {"dev"},
		"address": {"other@lists.example.org"},
	}
	req := requestWithCookies("POST", "/-/admin/lists", strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	// The original registration is untouched
	list, _ := env.DB.Queries.GetListByName(context.Background(), "dev")
	if list.Address != "dev@lists.example.org" {
		t.Errorf("address = %q, want the original address", list.Address)
	}
}

func TestAdminListSave(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	list := testutil.CreateTestList(t, env.DB, "dev", "dev@lists.example.org")
	cookies := loginAsAdmin(t, env)

	form := url.Values{
		"address":     {"devel@lists.example.org"},
		"description": {"Development discussion."},
		"hidden":      {"on"},
	}
	req := requestWithCookies("POST", fmt.Sprintf("/-/admin/lists/%d", list.ID), strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	updated, err := env.DB.Queries.GetListByID(context.Background(), list.ID)
	if err != nil {
		t.Fatalf("list lookup failed: %v", err)
	}
	if updated.Address != "devel@lists.example.org" {
		t.Errorf("address = %q, want %q", updated.Address, "devel@lists.example.org")
	}
	if updated.Description.String != "Development discussion." {
		t.Errorf("description = %q", updated.Description.String)
	}
	if !updated.IsHidden.Bool {
		t.Error("list should be hidden after save")
	}
}

// --- Admin site settings tests ---

func TestAdminSettings(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	req := requestWithCookies("GET", "/-/admin/settings", nil, cookies)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAdminSiteSettingsSave(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	cookies := loginAsAdmin(t, env)

	form := url.Values{
		"site_name":        {"Dev Archive"},
		"site_description": {"Patches and discussion."},
	}
	req := requestWithCookies("POST", "/-/admin/settings", strings.NewReader(form.Encode()), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	pref, err := env.DB.Queries.GetPreference(context.Background(), "site_name")
	if err != nil {
		t.Fatalf("preference lookup failed: %v", err)
	}
	if pref.Value.String != "Dev Archive" {
		t.Errorf("site_name = %q, want %q", pref.Value.String, "Dev Archive")
	}

	// The new name shows up in rendered pages
	pageReq := httptest.NewRequest("GET", "/-/about", nil)
	pageW := httptest.NewRecorder()
	env.Router.ServeHTTP(pageW, pageReq)
	if !strings.Contains(pageW.Body.String(), "Dev Archive") {
		t.Error("about page should use the saved site name")
	}
}

// --- Admin reindex test ---

func TestAdminReindex(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	seedArchive(t, env)
	cookies := loginAsAdmin(t, env)

	req := requestWithCookies("POST", "/-/admin/reindex", strings.NewReader(""), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}

	// The rebuild runs in the background; wait for it to settle
	waitForIngest(t, env)

	if op := env.Server.Archive.Status().Operation; op != "reindex" {
		t.Errorf("operation = %q, want reindex", op)
	}

	// The index still carries every message
	list, _ := env.DB.Queries.GetListByName(context.Background(), "dev")
	count, err := env.DB.Queries.CountMessagesByList(context.Background(), list.ID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 6 {
		t.Errorf("indexed messages after reindex = %d, want 6", count)
	}
}
