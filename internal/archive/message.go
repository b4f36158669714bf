// Package archive provides mailing list archive operations on top of the
// message store and the index database.
package archive

import (
	"strings"
	"sync"

	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/mail"
	"github.com/sa/gopherlist/internal/patch"
	"github.com/sa/gopherlist/internal/storage"
)

// Message wraps an indexed message row with its archive context. The raw
// .eml bytes live in git and are only loaded when asked for; the decoded
// body and the parsed headers come from the index row. Patch metadata is
// classified on demand and memoized per instance, while the extraction
// results themselves go through the service's content-keyed cache.
type Message struct {
	Row  db.Message
	List string

	store        storage.Storage
	cache        *patch.Cache
	previewLines int

	once       sync.Once
	meta       *patch.Metadata
	subject    mail.Subject
	rawOnce    sync.Once
	raw        []byte
	rawErr     error
}

// NewMessage wraps an index row.
func NewMessage(store storage.Storage, cache *patch.Cache, list string, row db.Message, previewLines int) *Message {
	return &Message{
		Row:          row,
		List:         list,
		store:        store,
		cache:        cache,
		previewLines: previewLines,
	}
}

// Body returns the decoded text body from the index.
func (m *Message) Body() string {
	return m.Row.Body.String
}

// Raw loads the verbatim .eml bytes from the archive. The result is
// memoized; messages are immutable so one load is enough.
func (m *Message) Raw() ([]byte, error) {
	m.rawOnce.Do(func() {
		m.raw, m.rawErr = m.store.Load(m.Row.BlobPath)
	})
	return m.raw, m.rawErr
}

// classify runs the patch classifier and subject parser once.
func (m *Message) classify() {
	m.once.Do(func() {
		m.meta = mail.Classify(m.Body())
		m.subject = mail.ParseSubject(m.Row.Subject.String)
	})
}

// Metadata returns the classified patch metadata, nil for plain discussion.
func (m *Message) Metadata() *patch.Metadata {
	m.classify()
	return m.meta
}

// Subject returns the parsed subject (series markers, revision, reply flag).
func (m *Message) Subject() mail.Subject {
	m.classify()
	return m.subject
}

// HasPatch reports whether this message carries diff content.
func (m *Message) HasPatch() bool {
	if m.Metadata().HasDiffSections() {
		return true
	}
	return m.Row.IsPatch.Bool
}

// Extract returns the diff content of this message, classifier metadata
// first, heuristic scan as fallback.
func (m *Message) Extract() string {
	return m.cache.Extract(m.Body(), m.Metadata())
}

// Fold returns the collapsible line span of this message, nil when there
// is nothing to fold.
func (m *Message) Fold() *patch.Section {
	return m.cache.FoldRange(m.Body(), m.Metadata())
}

// Preview returns the lines shown for this message in collapsed listings.
func (m *Message) Preview() string {
	return m.cache.Preview(m.Body(), m.Metadata(), m.previewLines)
}

// Trailers returns the git trailers the classifier located in this message
// (Signed-off-by, Reviewed-by, ...). Plain discussion yields none.
func (m *Message) Trailers() []mail.Trailer {
	meta := m.Metadata()
	if meta == nil || len(meta.TrailerSections) == 0 {
		return nil
	}
	lines := patch.Lines(m.Body())
	var collected []mail.Trailer
	for _, sec := range meta.TrailerSections {
		if sec.Start < 0 || sec.Start >= len(lines) || sec.End < sec.Start {
			continue
		}
		end := sec.End
		if end >= len(lines) {
			end = len(lines) - 1
		}
		text := strings.Join(lines[sec.Start:end+1], "\n")
		collected = append(collected, mail.ParseTrailers(text)...)
	}
	return collected
}

// ThreadMessage converts this message into the form thread aggregation
// consumes.
func (m *Message) ThreadMessage() patch.ThreadMessage {
	return patch.ThreadMessage{
		ID:   m.Row.MessageID,
		Body: m.Body(),
		Meta: m.Metadata(),
	}
}
