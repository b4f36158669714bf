package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/mail"
	"github.com/sa/gopherlist/internal/storage"
)

// errDuplicate marks a message whose Message-ID is already indexed for the
// list. Imports count these as skipped, not failed.
var errDuplicate = errors.New("archive: duplicate message")

// IngestStatus is a point-in-time snapshot of the running (or last
// finished) import or reindex, for polling from the admin UI.
type IngestStatus struct {
	Running    bool      `json:"running"`
	Operation  string    `json:"operation,omitempty"`
	List       string    `json:"list,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	LastError  string    `json:"last_error,omitempty"`
}

type ingestState struct {
	mu     sync.RWMutex
	status IngestStatus
}

// Status returns a snapshot of the current ingest state.
func (s *Service) Status() IngestStatus {
	s.ingest.mu.RLock()
	defer s.ingest.mu.RUnlock()
	return s.ingest.status
}

// begin claims the single ingest slot. Imports and reindexes rewrite the
// same tables, so only one may run at a time.
func (s *Service) begin(operation, list string) error {
	s.ingest.mu.Lock()
	defer s.ingest.mu.Unlock()
	if s.ingest.status.Running {
		return ErrImportRunning
	}
	s.ingest.status = IngestStatus{
		Running:   true,
		Operation: operation,
		List:      list,
		StartedAt: time.Now().UTC(),
	}
	return nil
}

// progress adds to the running counters.
func (s *Service) progress(imported, skipped, failed int) {
	s.ingest.mu.Lock()
	s.ingest.status.Imported += imported
	s.ingest.status.Skipped += skipped
	s.ingest.status.Failed += failed
	s.ingest.mu.Unlock()
}

// finish releases the ingest slot, recording the outcome.
func (s *Service) finish(err error) {
	s.ingest.mu.Lock()
	s.ingest.status.Running = false
	s.ingest.status.FinishedAt = time.Now().UTC()
	if err != nil {
		s.ingest.status.LastError = err.Error()
	}
	s.ingest.mu.Unlock()
}

// ImportResult summarizes one mbox import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// ImportMbox reads an mbox stream and archives its messages into the given
// list: raw bytes to git, parsed form to the index, one batch commit at the
// end. A message that fails to parse or index is recorded and skipped; the
// import carries on and reports every failure together at the end.
func (s *Service) ImportMbox(ctx context.Context, listName string, r io.Reader, author storage.Author) (ImportResult, error) {
	list, err := s.List(ctx, listName)
	if err != nil {
		return ImportResult{}, err
	}
	if err := s.begin("import", list.Name); err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	var errs *multierror.Error
	var stored []string
	index := 0

	walkErr := mail.WalkMbox(r, func(raw []byte) error {
		index++
		if err := ctx.Err(); err != nil {
			return err
		}
		switch err := s.ingestMessage(ctx, list, raw, &stored); {
		case err == nil:
			result.Imported++
			s.progress(1, 0, 0)
		case errors.Is(err, errDuplicate):
			result.Skipped++
			s.progress(0, 1, 0)
		default:
			errs = multierror.Append(errs, fmt.Errorf("message %d: %w", index, err))
			result.Failed++
			s.progress(0, 0, 1)
		}
		return nil
	})
	if walkErr != nil {
		errs = multierror.Append(errs, fmt.Errorf("reading mbox: %w", walkErr))
	}

	if len(stored) > 0 {
		message := fmt.Sprintf("Import %d messages into %s", len(stored), list.Name)
		if err := s.store.Commit(stored, message, author); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("committing archive: %w", err))
		}
	}

	err = errs.ErrorOrNil()
	s.finish(err)
	return result, err
}

// ingestMessage parses one raw message and records it: blob to the store
// (skipped when stored is nil, as during reindex), row plus thread linkage
// to the index. Each message is indexed in its own transaction.
func (s *Service) ingestMessage(ctx context.Context, list db.List, raw []byte, stored *[]string) error {
	msg, err := mail.ParseMessage(raw)
	if err != nil {
		return err
	}

	tx, err := s.database.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	q := s.database.WithTx(tx)

	exists, err := q.MessageExists(ctx, db.MessageExistsParams{
		ListID:    list.ID,
		MessageID: msg.MessageID,
	})
	if err != nil {
		return err
	}
	if exists {
		return errDuplicate
	}

	blob := storage.BlobPath(list.Name, msg.MessageID)
	if stored != nil {
		changed, err := s.store.Write(blob, raw)
		if err != nil {
			return fmt.Errorf("storing %s: %w", blob, err)
		}
		if changed {
			*stored = append(*stored, blob)
		}
	}

	meta := mail.Classify(msg.Body)
	isPatch := meta.HasDiffSections()

	thread, err := resolveThread(ctx, q, list.ID, msg)
	if err != nil {
		return err
	}

	if _, err := q.CreateMessage(ctx, db.CreateMessageParams{
		ListID:    list.ID,
		ThreadID:  thread.ID,
		MessageID: msg.MessageID,
		ParentID:  db.NullString(msg.InReplyTo),
		Subject:   db.NullString(msg.Subject),
		FromName:  db.NullString(msg.FromName),
		FromEmail: db.NullString(msg.FromEmail),
		Date:      db.NullTime(msg.Date),
		Body:      db.NullString(msg.Body),
		IsPatch:   db.NullBool(isPatch),
		BlobPath:  blob,
	}); err != nil {
		return err
	}

	if err := q.TouchThread(ctx, db.TouchThreadParams{
		LastActivity: db.NullTime(msg.Date),
		HasPatch:     db.NullBool(isPatch),
		ID:           thread.ID,
	}); err != nil {
		return err
	}

	return tx.Commit()
}

// Reindex rebuilds the index database from the git store, one worker per
// list. The store is the source of truth; everything in the index is
// derived and disposable.
func (s *Service) Reindex(ctx context.Context) error {
	if err := s.begin("reindex", ""); err != nil {
		return err
	}
	err := s.reindexAll(ctx)
	s.finish(err)
	return err
}

// StartReindex claims the ingest slot and rebuilds in the background;
// callers poll Status for completion.
func (s *Service) StartReindex() error {
	if err := s.begin("reindex", ""); err != nil {
		return err
	}
	go func() {
		err := s.reindexAll(context.Background())
		if err != nil {
			slog.Error("reindex failed", "error", err)
		}
		s.finish(err)
	}()
	return nil
}

func (s *Service) reindexAll(ctx context.Context) error {
	lists, err := s.database.Queries.ListAllLists(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, list := range lists {
		g.Go(func() error {
			return s.reindexList(ctx, list)
		})
	}
	return g.Wait()
}

// reindexList drops and rebuilds one list's index rows. Messages are
// parsed first and indexed in date order so reply linkage finds its
// parents already present.
func (s *Service) reindexList(ctx context.Context, list db.List) error {
	if err := s.database.Queries.DeleteMessagesByList(ctx, list.ID); err != nil {
		return err
	}
	if err := s.database.Queries.DeleteThreadsByList(ctx, list.ID); err != nil {
		return err
	}

	files, err := s.store.ListMessages(list.Name)
	if err != nil {
		return err
	}

	type entry struct {
		raw  []byte
		date time.Time
	}
	var errs *multierror.Error
	entries := make([]entry, 0, len(files))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := s.store.Load(f)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", f, err))
			s.progress(0, 0, 1)
			continue
		}
		msg, err := mail.ParseMessage(raw)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", f, err))
			s.progress(0, 0, 1)
			continue
		}
		entries = append(entries, entry{raw: raw, date: msg.Date})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].date.Before(entries[j].date)
	})

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch err := s.ingestMessage(ctx, list, e.raw, nil); {
		case err == nil:
			s.progress(1, 0, 0)
		case errors.Is(err, errDuplicate):
			s.progress(0, 1, 0)
		default:
			errs = multierror.Append(errs, err)
			s.progress(0, 0, 1)
		}
	}

	return errs.ErrorOrNil()
}
