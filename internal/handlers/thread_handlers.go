package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sa/gopherlist/internal/archive"
)

// handleThreadView handles the thread view: every message rendered in
// thread order with its patch content folded, plus the combined patch
// panel when any message carries a diff.
func (s *Server) handleThreadView(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")
	threadID, err := parseInt64(chi.URLParam(r, "threadID"))
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "No such thread.")
		return
	}

	view, err := s.Archive.Thread(r.Context(), listName, threadID)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	messages := make([]MessageView, 0, len(view.Messages))
	for _, msg := range view.Messages {
		messages = append(messages, s.buildMessageView(msg))
	}

	data := NewThreadData(view, messages)

	// Aggregated patch panel across the whole thread
	diff := view.ThreadDiff()
	if diff.CombinedText != "" {
		data["patchset"] = diff
		data["patchset_lines"] = parseDiff(diff.CombinedText)
	}

	// Series revisions posted into this thread (v1, v2, ...)
	if series := view.Series(); len(series) > 0 {
		data["series"] = series
	}

	s.renderTemplate(w, r, "thread.html", data)
}

// handleThreadPatch serves the combined diff of a thread as plain text.
// ?rev=N narrows it to the patches of one series revision.
func (s *Server) handleThreadPatch(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")
	threadID, err := parseInt64(chi.URLParam(r, "threadID"))
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "No such thread.")
		return
	}

	view, err := s.Archive.Thread(r.Context(), listName, threadID)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	var text string
	if rev := r.URL.Query().Get("rev"); rev != "" {
		n, err := strconv.Atoi(rev)
		if err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Revision must be a number.")
			return
		}
		found := false
		for _, sr := range view.Series() {
			if sr.Revision == n {
				text = sr.Diff().CombinedText
				found = true
				break
			}
		}
		if !found {
			s.renderArchiveError(w, r, archive.ErrRevisionNotFound)
			return
		}
	} else {
		text = view.ThreadDiff().CombinedText
	}

	if text == "" {
		s.renderError(w, r, http.StatusNotFound, "This thread carries no patch content.")
		return
	}

	filename := fmt.Sprintf("%s-t%d.patch", listName, threadID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	io.WriteString(w, text)
	if !strings.HasSuffix(text, "\n") {
		io.WriteString(w, "\n")
	}
}

// handleThreadSeries handles the series view: one block per posted
// revision, and the line diff between two revisions when ?a= and ?b=
// are both given.
func (s *Server) handleThreadSeries(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")
	threadID, err := parseInt64(chi.URLParam(r, "threadID"))
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "No such thread.")
		return
	}

	view, err := s.Archive.Thread(r.Context(), listName, threadID)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	series := view.Series()

	data := NewThreadData(view, nil)
	data["series"] = series

	aStr := r.URL.Query().Get("a")
	bStr := r.URL.Query().Get("b")
	if aStr != "" && bStr != "" {
		a, errA := strconv.Atoi(aStr)
		b, errB := strconv.Atoi(bStr)
		if errA != nil || errB != nil {
			s.renderError(w, r, http.StatusBadRequest, "Revision numbers must be numbers.")
			return
		}
		comparison, err := view.Compare(a, b)
		if err != nil {
			s.renderArchiveError(w, r, err)
			return
		}
		data["comparison"] = comparison
	}

	s.renderTemplate(w, r, "series.html", data)
}
