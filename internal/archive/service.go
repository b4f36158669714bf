package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sa/gopherlist/internal/config"
	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/patch"
	"github.com/sa/gopherlist/internal/storage"
)

// Errors for archive operations.
var (
	ErrListNotFound    = errors.New("archive: list not found")
	ErrThreadNotFound  = errors.New("archive: thread not found")
	ErrMessageNotFound = errors.New("archive: message not found")
	ErrImportRunning   = errors.New("archive: an import or reindex is already running")
)

// ListSummary is a list with its message statistics for the index page.
type ListSummary struct {
	List         db.List
	MessageCount int64
	LastActivity sql.NullTime
}

// Service provides archive operations on top of Storage and the index
// database. It owns the patch extraction cache shared by every message
// wrapper it hands out.
type Service struct {
	store    storage.Storage
	config   *config.Config
	database *db.Database
	cache    *patch.Cache

	ingest ingestState
}

// NewService creates a new Service.
func NewService(store storage.Storage, cfg *config.Config, database *db.Database) *Service {
	return &Service{
		store:    store,
		config:   cfg,
		database: database,
		cache:    patch.NewCache(patch.DefaultCacheSize),
	}
}

// Lists returns the visible lists with their statistics, ordered by name.
func (s *Service) Lists(ctx context.Context) ([]ListSummary, error) {
	rows, err := s.database.Queries.ListListsWithStats(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]ListSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, ListSummary{
			List: db.List{
				ID:          r.ID,
				Name:        r.Name,
				Address:     r.Address,
				Description: r.Description,
				IsHidden:    r.IsHidden,
				CreatedAt:   r.CreatedAt,
			},
			MessageCount: r.MessageCount,
			LastActivity: r.LastActivity,
		})
	}
	return summaries, nil
}

// List looks up a visible list by name.
func (s *Service) List(ctx context.Context, name string) (db.List, error) {
	list, err := s.database.Queries.GetListByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.List{}, ErrListNotFound
		}
		return db.List{}, err
	}
	return list, nil
}

// Threads returns one page of a list's threads, most recently active
// first, plus the total thread count for pagination.
func (s *Service) Threads(ctx context.Context, listName string, page int) ([]db.Thread, int64, error) {
	list, err := s.List(ctx, listName)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	pageSize := int64(s.config.PageSize)

	threads, err := s.database.Queries.ListThreads(ctx, db.ListThreadsParams{
		ListID: list.ID,
		Limit:  pageSize,
		Offset: (int64(page) - 1) * pageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	total, err := s.database.Queries.CountThreadsByList(ctx, list.ID)
	if err != nil {
		return nil, 0, err
	}
	return threads, total, nil
}

// Message looks up a single message by its canonical Message-ID within a
// list and wraps it for rendering.
func (s *Service) Message(ctx context.Context, listName, messageID string) (*Message, error) {
	list, err := s.List(ctx, listName)
	if err != nil {
		return nil, err
	}

	row, err := s.database.Queries.GetMessageByMessageID(ctx, db.GetMessageByMessageIDParams{
		ListID:    list.ID,
		MessageID: messageID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return NewMessage(s.store, s.cache, list.Name, row, s.config.PreviewLines), nil
}

// wrap converts index rows into render-ready messages.
func (s *Service) wrap(listName string, rows []db.Message) []*Message {
	msgs := make([]*Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, NewMessage(s.store, s.cache, listName, row, s.config.PreviewLines))
	}
	return msgs
}

// RecentMessages returns the latest visible messages of one list, newest
// first. It drives the per-list feed.
func (s *Service) RecentMessages(ctx context.Context, listName string, limit int) ([]*Message, error) {
	list, err := s.List(ctx, listName)
	if err != nil {
		return nil, err
	}
	rows, err := s.database.Queries.ListRecentMessages(ctx, db.ListRecentMessagesParams{
		ListID: list.ID,
		Limit:  int64(limit),
		Offset: 0,
	})
	if err != nil {
		return nil, err
	}
	return s.wrap(list.Name, rows), nil
}

// RecentActivity returns the latest visible messages across every list,
// newest first. It drives the site feed and the front page.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]*Message, error) {
	rows, err := s.database.Queries.ListRecentMessagesAll(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	names, err := s.listNames(ctx)
	if err != nil {
		return nil, err
	}
	msgs := make([]*Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, NewMessage(s.store, s.cache, names[row.ListID], row, s.config.PreviewLines))
	}
	return msgs, nil
}

// Search runs a full-text query, scoped to one list when listName is
// non-empty. FTS5 handles the query first; when it rejects the syntax the
// search falls back to a LIKE scan so user input never turns into an
// error page.
func (s *Service) Search(ctx context.Context, listName, query string, limit int) ([]*Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = s.config.PageSize
	}

	var listID int64
	if listName != "" {
		list, err := s.List(ctx, listName)
		if err != nil {
			return nil, err
		}
		listID = list.ID
	}

	ftsQuery := ftsQuoteQuery(query)

	var rows []db.Message
	var err error
	if listName != "" {
		rows, err = s.database.Queries.SearchMessages(ctx, db.SearchMessagesParams{
			Query:  ftsQuery,
			ListID: listID,
			Limit:  int64(limit),
		})
	} else {
		rows, err = s.database.Queries.SearchMessagesAll(ctx, db.SearchMessagesAllParams{
			Query: ftsQuery,
			Limit: int64(limit),
		})
	}
	if err != nil {
		slog.Warn("FTS5 search failed, falling back to LIKE scan", "query", query, "error", err)
		pattern := "%" + likeEscape(query) + "%"
		if listName != "" {
			rows, err = s.database.Queries.SearchMessagesLike(ctx, db.SearchMessagesLikeParams{
				ListID:  listID,
				Pattern: pattern,
				Limit:   int64(limit),
			})
		} else {
			rows, err = s.database.Queries.SearchMessagesLikeAll(ctx, db.SearchMessagesLikeAllParams{
				Pattern: pattern,
				Limit:   int64(limit),
			})
		}
		if err != nil {
			return nil, err
		}
	}

	if listName != "" {
		return s.wrap(listName, rows), nil
	}

	// Global results span lists; resolve each row's list name for linking.
	names, err := s.listNames(ctx)
	if err != nil {
		return nil, err
	}
	msgs := make([]*Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, NewMessage(s.store, s.cache, names[row.ListID], row, s.config.PreviewLines))
	}
	return msgs, nil
}

// listNames maps list ids to names.
func (s *Service) listNames(ctx context.Context) (map[int64]string, error) {
	lists, err := s.database.Queries.ListAllLists(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(lists))
	for _, l := range lists {
		names[l.ID] = l.Name
	}
	return names, nil
}

// ftsQuoteQuery turns free-form user input into an FTS5 query: every
// whitespace-separated term becomes a quoted string, joined by implicit
// AND. Quoting keeps FTS5 operators and punctuation in user input from
// being parsed as syntax.
func ftsQuoteQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// likeEscape escapes the LIKE wildcards in user input.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// Changelog returns the recent archive commit history, newest first.
func (s *Service) Changelog(maxCount int) ([]storage.CommitMetadata, error) {
	log, err := s.store.Log("", maxCount)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil // empty archive
		}
		return nil, err
	}
	return log, nil
}

// ListChangelog returns the recent commit history of one list.
func (s *Service) ListChangelog(listName string, maxCount int) ([]storage.CommitMetadata, error) {
	log, err := s.store.Log(listName, maxCount)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return log, nil
}

// Stats summarizes the archive for the status endpoints.
type Stats struct {
	Lists    int64
	Threads  int64
	Messages int64
}

// Stats returns archive-wide counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	lists, err := s.database.Queries.ListAllLists(ctx)
	if err != nil {
		return st, err
	}
	st.Lists = int64(len(lists))

	st.Messages, err = s.database.Queries.CountMessages(ctx)
	if err != nil {
		return st, err
	}

	for _, l := range lists {
		n, err := s.database.Queries.CountThreadsByList(ctx, l.ID)
		if err != nil {
			return st, err
		}
		st.Threads += n
	}
	return st, nil
}

// HideMessage flags or unflags a message as hidden. Hidden messages stay
// in the archive and index but disappear from listings, search, and feeds.
func (s *Service) HideMessage(ctx context.Context, listName, messageID string, hidden bool) error {
	msg, err := s.Message(ctx, listName, messageID)
	if err != nil {
		return err
	}
	if err := s.database.Queries.SetMessageHidden(ctx, db.SetMessageHiddenParams{
		IsHidden: db.NullBool(hidden),
		ID:       msg.Row.ID,
	}); err != nil {
		return fmt.Errorf("failed to update message visibility: %w", err)
	}
	return nil
}
