package archive

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/mail"
	"github.com/sa/gopherlist/internal/patch"
)

// ThreadView is a thread with its messages in date order, ready to render.
type ThreadView struct {
	Thread   db.Thread
	List     db.List
	Messages []*Message
}

// Thread loads a thread and its visible messages.
func (s *Service) Thread(ctx context.Context, listName string, threadID int64) (*ThreadView, error) {
	list, err := s.List(ctx, listName)
	if err != nil {
		return nil, err
	}

	thread, err := s.database.Queries.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	if thread.ListID != list.ID {
		return nil, ErrThreadNotFound
	}

	rows, err := s.database.Queries.ListThreadMessages(ctx, thread.ID)
	if err != nil {
		return nil, err
	}

	return &ThreadView{
		Thread:   thread,
		List:     list,
		Messages: s.wrap(list.Name, rows),
	}, nil
}

// ThreadDiff aggregates the diff content of every message in the thread,
// in thread order.
func (v *ThreadView) ThreadDiff() patch.ThreadDiff {
	msgs := make([]patch.ThreadMessage, 0, len(v.Messages))
	for _, m := range v.Messages {
		msgs = append(msgs, m.ThreadMessage())
	}
	return patch.AggregateThread(msgs)
}

// resolveThread finds the thread a newly ingested message belongs to, or
// creates one. Linkage order: the In-Reply-To parent, then the reference
// chain walked newest first, then for replies a normalized-subject match,
// and finally a fresh thread rooted at this message.
func resolveThread(ctx context.Context, q *db.Queries, listID int64, msg *mail.Message) (db.Thread, error) {
	parents := make([]string, 0, len(msg.References)+1)
	if msg.InReplyTo != "" {
		parents = append(parents, msg.InReplyTo)
	}
	for i := len(msg.References) - 1; i >= 0; i-- {
		ref := msg.References[i]
		if ref != "" && ref != msg.InReplyTo {
			parents = append(parents, ref)
		}
	}

	for _, parentID := range parents {
		parent, err := q.GetMessageByMessageID(ctx, db.GetMessageByMessageIDParams{
			ListID:    listID,
			MessageID: parentID,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return db.Thread{}, err
		}
		thread, err := q.GetThread(ctx, parent.ThreadID)
		if err == nil {
			return thread, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return db.Thread{}, err
		}
	}

	parsed := mail.ParseSubject(msg.Subject)
	subjectKey := mail.NormalizeSubject(msg.Subject)

	// A reply whose parent never reached the archive still lands in the
	// right thread when the subjects line up.
	if parsed.IsReply && subjectKey != "" {
		thread, err := q.GetThreadBySubjectKey(ctx, db.GetThreadBySubjectKeyParams{
			ListID:     listID,
			SubjectKey: db.NullString(subjectKey),
		})
		if err == nil {
			return thread, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return db.Thread{}, err
		}
	}

	return q.CreateThread(ctx, db.CreateThreadParams{
		ListID:        listID,
		RootMessageID: msg.MessageID,
		Subject:       db.NullString(msg.Subject),
		SubjectKey:    db.NullString(subjectKey),
		CreatedAt:     db.NullTime(msg.Date),
		LastActivity:  db.NullTime(msg.Date),
	})
}

// SeriesRevision is one posted revision of a patch series inside a thread:
// the patches of that revision in series order, the cover letter when one
// was posted, and whether every numbered patch arrived.
type SeriesRevision struct {
	Revision int
	Total    int
	Cover    *Message
	Patches  []*Message
	Complete bool
}

// Series groups a thread's patch messages by subject revision (v1, v2,
// ...), each revision's patches ordered by series number. Threads without
// patch series markers yield nil.
func (v *ThreadView) Series() []SeriesRevision {
	byRev := make(map[int]*SeriesRevision)
	for _, m := range v.Messages {
		subj := m.Subject()
		// Review replies quote the patch subject; only the postings
		// themselves belong to the series.
		if subj.IsReply || (!subj.IsPatch() && !subj.IsCover()) {
			continue
		}
		rev, ok := byRev[subj.Revision]
		if !ok {
			rev = &SeriesRevision{Revision: subj.Revision}
			byRev[subj.Revision] = rev
		}
		if subj.Total > rev.Total {
			rev.Total = subj.Total
		}
		if subj.IsCover() {
			if rev.Cover == nil {
				rev.Cover = m
			}
			continue
		}
		rev.Patches = append(rev.Patches, m)
	}
	if len(byRev) == 0 {
		return nil
	}

	revisions := make([]SeriesRevision, 0, len(byRev))
	for _, rev := range byRev {
		sort.SliceStable(rev.Patches, func(i, j int) bool {
			return rev.Patches[i].Subject().Num < rev.Patches[j].Subject().Num
		})
		rev.Complete = seriesComplete(rev)
		revisions = append(revisions, *rev)
	}
	sort.Slice(revisions, func(i, j int) bool {
		return revisions[i].Revision < revisions[j].Revision
	})
	return revisions
}

// seriesComplete reports whether every numbered patch 1..Total is present.
func seriesComplete(rev *SeriesRevision) bool {
	if rev.Total == 0 {
		return len(rev.Patches) > 0
	}
	seen := make(map[int]bool, len(rev.Patches))
	for _, m := range rev.Patches {
		seen[m.Subject().Num] = true
	}
	for n := 1; n <= rev.Total; n++ {
		if !seen[n] {
			return false
		}
	}
	return true
}

// Diff combines the revision's patches into one diff, in series order.
func (r SeriesRevision) Diff() patch.ThreadDiff {
	msgs := make([]patch.ThreadMessage, 0, len(r.Patches))
	for _, m := range r.Patches {
		msgs = append(msgs, m.ThreadMessage())
	}
	return patch.AggregateThread(msgs)
}
