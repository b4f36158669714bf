package archive

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/sa/gopherlist/internal/config"
	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/storage"
)

// Test messages for one dev thread: a two-patch v1 series, a review
// reply, and a two-patch v2 respin, all linked by References to the
// first posting.

const msgPatchV1of2 = `From: Alice Dev <alice@example.org>
To: dev@lists.example.org
Subject: [PATCH 1/2] index: add threads table
Date: Mon, 06 Jan 2025 10:00:00 +0000
Message-ID: <v1-1@example.org>

Add the threads table to the index schema.

Signed-off-by: Alice Dev <alice@example.org>
---
 schema.sql | 2 ++
 1 file changed, 2 insertions(+)

diff --git a/schema.sql b/schema.sql
index 1111111..2222222 100644
--- a/schema.sql
+++ b/schema.sql
@@ -1 +1,3 @@
 CREATE TABLE messages (id INTEGER);
+CREATE TABLE threads (id INTEGER);
+CREATE INDEX idx_threads ON threads (id);
`

const msgPatchV2of2 = `From: Alice Dev <alice@example.org>
To: dev@lists.example.org
Subject: [PATCH 2/2] index: record last activity
Date: Mon, 06 Jan 2025 10:01:00 +0000
Message-ID: <v1-2@example.org>
In-Reply-To: <v1-1@example.org>
References: <v1-1@example.org>

Track the newest message date per thread.

diff --git a/schema.sql b/schema.sql
index 2222222..3333333 100644
--- a/schema.sql
+++ b/schema.sql
@@ -1,3 +1,4 @@
 CREATE TABLE messages (id INTEGER);
 CREATE TABLE threads (id INTEGER);
+ALTER TABLE threads ADD COLUMN last_activity TEXT;
 CREATE INDEX idx_threads ON threads (id);
`

const msgReview = `From: Bob Reviewer <bob@example.org>
To: dev@lists.example.org
Subject: Re: [PATCH 1/2] index: add threads table
Date: Mon, 06 Jan 2025 11:00:00 +0000
Message-ID: <review-1@example.org>
In-Reply-To: <v1-1@example.org>
References: <v1-1@example.org>

Looks good. One nit: the index name could carry the column.
`

const msgRespinV2P1 = `From: Alice Dev <alice@example.org>
To: dev@lists.example.org
Subject: [PATCH v2 1/2] index: add threads table
Date: Mon, 06 Jan 2025 12:00:00 +0000
Message-ID: <v2-1@example.org>
References: <v1-1@example.org>

Add the threads table to the index schema.

diff --git a/schema.sql b/schema.sql
index 1111111..4444444 100644
--- a/schema.sql
+++ b/schema.sql
@@ -1 +1,3 @@
 CREATE TABLE messages (id INTEGER);
+CREATE TABLE threads (id INTEGER);
+CREATE INDEX idx_threads_activity ON threads (last_activity);
`

const msgRespinV2P2 = `From: Alice Dev <alice@example.org>
To: dev@lists.example.org
Subject: [PATCH v2 2/2] index: record last activity
Date: Mon, 06 Jan 2025 12:01:00 +0000
Message-ID: <v2-2@example.org>
References: <v1-1@example.org> <v2-1@example.org>

Track the newest message date per thread.

diff --git a/schema.sql b/schema.sql
index 4444444..5555555 100644
--- a/schema.sql
+++ b/schema.sql
@@ -1,3 +1,4 @@
 CREATE TABLE messages (id INTEGER);
 CREATE TABLE threads (id INTEGER);
+ALTER TABLE threads ADD COLUMN last_activity TEXT;
 CREATE INDEX idx_threads_activity ON threads (last_activity);
`

const msgAnnounce = `From: Alice Dev <alice@example.org>
To: dev@lists.example.org
Subject: gopherlist 0.3 released
Date: Wed, 08 Jan 2025 09:00:00 +0000
Message-ID: <announce-1@example.org>

The 0.3 release is out. Highlights: faster reindex, feed fixes.
`

const msgQuestion = `From: Carol User <carol@example.org>
To: users@lists.example.org
Subject: How do I rebuild the index?
Date: Tue, 07 Jan 2025 09:00:00 +0000
Message-ID: <question-1@example.org>

Is there a way to rebuild the search index after moving the archive?
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
	return mboxOf(msgPatchV1of2, msgPatchV2of2, msgReview, msgRespinV2P1, msgRespinV2P2, msgAnnounce)
}

var testAuthor = storage.Author{Name: "archive", Email: "archive@example.org"}

func setupTestService(t *testing.T) (*Service, *db.Database) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "gopherlist-archive-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := storage.NewGitStorage(tmpDir, true)
	if err != nil {
		t.Fatalf("Failed to create GitStorage: %v", err)
	}

	database, err := db.Open("sqlite:///:memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	for _, name := range []string{"dev", "users"} {
		_, err := database.Queries.CreateList(context.Background(), db.CreateListParams{
			Name:    name,
			Address: name + "@lists.example.org",
		})
		if err != nil {
			t.Fatalf("Failed to create list %s: %v", name, err)
		}
	}

	cfg := config.Default()
	cfg.Repository = tmpDir

	return NewService(store, cfg, database), database
}

// importDev loads the dev fixture mbox and fails the test on any error.
func importDev(t *testing.T, s *Service) ImportResult {
	t.Helper()
	result, err := s.ImportMbox(context.Background(), "dev", strings.NewReader(devMbox()), testAuthor)
	if err != nil {
		t.Fatalf("ImportMbox failed: %v", err)
	}
	return result
}

func TestImportMbox(t *testing.T) {
	s, database := setupTestService(t)
	ctx := context.Background()

	result := importDev(t, s)
	if result.Imported != 6 || result.Skipped != 0 || result.Failed != 0 {
		t.Errorf("result = %+v, want 6 imported", result)
	}

	count, err := s.store.MessageCount("dev")
	if err != nil {
		t.Fatalf("MessageCount failed: %v", err)
	}
	if count != 6 {
		t.Errorf("stored blobs = %d, want 6", count)
	}

	list, _ := database.Queries.GetListByName(ctx, "dev")
	indexed, err := database.Queries.CountMessagesByList(ctx, list.ID)
	if err != nil {
		t.Fatalf("CountMessagesByList failed: %v", err)
	}
	if indexed != 6 {
		t.Errorf("indexed messages = %d, want 6", indexed)
	}

	// The series, review, and respin all share one thread; the release
	// announcement stands alone.
	threads, err := database.Queries.CountThreadsByList(ctx, list.ID)
	if err != nil {
		t.Fatalf("CountThreadsByList failed: %v", err)
	}
	if threads != 2 {
		t.Errorf("threads = %d, want 2", threads)
	}

	root, err := database.Queries.GetThreadByRoot(ctx, db.GetThreadByRootParams{
		ListID:        list.ID,
		RootMessageID: "v1-1@example.org",
	})
	if err != nil {
		t.Fatalf("GetThreadByRoot failed: %v", err)
	}
	if root.MessageCount.Int64 != 5 {
		t.Errorf("patch thread message count = %d, want 5", root.MessageCount.Int64)
	}
	if !root.HasPatch.Bool {
		t.Error("patch thread should have has_patch set")
	}

	// Whole import lands as one archive commit
	log, err := s.store.Log("", 0)
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("archive commits = %d, want 1", len(log))
	}
	if log[0].Message != "Import 6 messages into dev" {
		t.Errorf("commit message = %q", log[0].Message)
	}
}

func TestImportMbox_DuplicatesSkipped(t *testing.T) {
	s, database := setupTestService(t)
	ctx := context.Background()

	importDev(t, s)
	second, err := s.ImportMbox(ctx, "dev", strings.NewReader(devMbox()), testAuthor)
	if err != nil {
		t.Fatalf("second ImportMbox failed: %v", err)
	}
	if second.Imported != 0 || second.Skipped != 6 {
		t.Errorf("second import = %+v, want 6 skipped", second)
	}

	list, _ := database.Queries.GetListByName(ctx, "dev")
	indexed, _ := database.Queries.CountMessagesByList(ctx, list.ID)
	if indexed != 6 {
		t.Errorf("indexed messages after re-import = %d, want 6", indexed)
	}

	log, _ := s.store.Log("", 0)
	if len(log) != 1 {
		t.Errorf("archive commits after re-import = %d, want 1", len(log))
	}
}

func TestImportMbox_BrokenMessageDoesNotAbort(t *testing.T) {
	s, database := setupTestService(t)
	ctx := context.Background()

	noID := `From: Mallory <mallory@example.org>
To: dev@lists.example.org
Subject: no message id here
Date: Mon, 06 Jan 2025 10:00:00 +0000

This message cannot be archived.
`
	result, err := s.ImportMbox(ctx, "dev", strings.NewReader(mboxOf(noID, msgAnnounce)), testAuthor)
	if err == nil {
		t.Fatal("ImportMbox should report the broken message")
	}
	if result.Imported != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1 imported 1 failed", result)
	}

	list, _ := database.Queries.GetListByName(ctx, "dev")
	indexed, _ := database.Queries.CountMessagesByList(ctx, list.ID)
	if indexed != 1 {
		t.Errorf("indexed messages = %d, want the good one only", indexed)
	}
}

func TestImportMbox_UnknownList(t *testing.T) {
	s, _ := setupTestService(t)

	_, err := s.ImportMbox(context.Background(), "nonexistent", strings.NewReader(devMbox()), testAuthor)
	if !errors.Is(err, ErrListNotFound) {
		t.Errorf("err = %v, want ErrListNotFound", err)
	}
}

func TestImportMbox_SingleSlot(t *testing.T) {
	s, _ := setupTestService(t)

	if err := s.begin("import", "dev"); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	_, err := s.ImportMbox(context.Background(), "dev", strings.NewReader(devMbox()), testAuthor)
	if !errors.Is(err, ErrImportRunning) {
		t.Errorf("err = %v, want ErrImportRunning", err)
	}
	s.finish(nil)

	// Slot released; the import can run now
	if _, err := s.ImportMbox(context.Background(), "dev", strings.NewReader(devMbox()), testAuthor); err != nil {
		t.Errorf("ImportMbox after release failed: %v", err)
	}
}

func TestReindex(t *testing.T) {
	s, database := setupTestService(t)
	ctx := context.Background()

	importDev(t, s)
	if _, err := s.ImportMbox(ctx, "users", strings.NewReader(mboxOf(msgQuestion)), testAuthor); err != nil {
		t.Fatalf("users import failed: %v", err)
	}

	// Wreck the index; the git store is the source of truth
	devList, _ := database.Queries.GetListByName(ctx, "dev")
	if err := database.Queries.DeleteMessagesByList(ctx, devList.ID); err != nil {
		t.Fatalf("DeleteMessagesByList failed: %v", err)
	}
	if err := database.Queries.DeleteThreadsByList(ctx, devList.ID); err != nil {
		t.Fatalf("DeleteThreadsByList failed: %v", err)
	}

	if err := s.Reindex(ctx); err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}

	indexed, _ := database.Queries.CountMessagesByList(ctx, devList.ID)
	if indexed != 6 {
		t.Errorf("dev messages after reindex = %d, want 6", indexed)
	}
	threads, _ := database.Queries.CountThreadsByList(ctx, devList.ID)
	if threads != 2 {
		t.Errorf("dev threads after reindex = %d, want 2", threads)
	}

	usersList, _ := database.Queries.GetListByName(ctx, "users")
	usersCount, _ := database.Queries.CountMessagesByList(ctx, usersList.ID)
	if usersCount != 1 {
		t.Errorf("users messages after reindex = %d, want 1", usersCount)
	}

	status := s.Status()
	if status.Running {
		t.Error("Status should not be running after Reindex returns")
	}
	if status.Operation != "reindex" {
		t.Errorf("Operation = %q, want reindex", status.Operation)
	}
	if status.Imported != 7 {
		t.Errorf("Status.Imported = %d, want 7", status.Imported)
	}
	if status.FinishedAt.IsZero() {
		t.Error("FinishedAt should be set")
	}
}

func TestStatus_InitiallyIdle(t *testing.T) {
	s, _ := setupTestService(t)

	status := s.Status()
	if status.Running {
		t.Error("fresh service should not be running")
	}
	if status.Imported != 0 || status.Failed != 0 {
		t.Errorf("fresh status = %+v, want zero counters", status)
	}
}
