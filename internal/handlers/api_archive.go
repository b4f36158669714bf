package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sa/gopherlist/internal/archive"
	"github.com/sa/gopherlist/internal/patch"
	"github.com/sa/gopherlist/internal/storage"
)

// writeArchiveError maps archive lookup failures onto API status codes.
func (s *Server) writeArchiveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, archive.ErrListNotFound):
		writeJSONError(w, http.StatusNotFound, "list not found")
	case errors.Is(err, archive.ErrThreadNotFound):
		writeJSONError(w, http.StatusNotFound, "thread not found")
	case errors.Is(err, archive.ErrMessageNotFound):
		writeJSONError(w, http.StatusNotFound, "message not found")
	case errors.Is(err, archive.ErrRevisionNotFound):
		writeJSONError(w, http.StatusNotFound, "series revision not found")
	default:
		slog.Error("api archive error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleAPILists returns every visible list with its stats.
func (s *Server) handleAPILists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.Archive.Lists(r.Context())
	if err != nil {
		s.writeArchiveError(w, err)
		return
	}

	result := make([]APIList, 0, len(lists))
	for _, ls := range lists {
		result = append(result, listSummaryToAPI(ls))
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAPIThreads returns one page of a list's thread index.
func (s *Server) handleAPIThreads(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}

	threads, total, err := s.Archive.Threads(r.Context(), listName, page)
	if err != nil {
		s.writeArchiveError(w, err)
		return
	}

	result := APIThreadPage{
		List:    listName,
		Page:    page,
		Total:   total,
		Threads: make([]APIThread, 0, len(threads)),
	}
	for _, t := range threads {
		result.Threads = append(result.Threads, threadToAPI(t))
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAPIThread returns a whole thread: its messages, the aggregated
// patchset and the posted series revisions.
func (s *Server) handleAPIThread(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")
	threadID, err := parseInt64(chi.URLParam(r, "threadID"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid thread id")
		return
	}

	view, err := s.Archive.Thread(r.Context(), listName, threadID)
	if err != nil {
		s.writeArchiveError(w, err)
		return
	}

	detail := APIThreadDetail{
		Thread:   threadToAPI(view.Thread),
		List:     view.List.Name,
		Messages: messagesToAPI(view.Messages),
	}
	if diff := view.ThreadDiff(); diff.CombinedText != "" {
		detail.Patchset = &APIPatchset{
			CombinedText: diff.CombinedText,
			Contributing: diff.Contributing,
		}
	}
	for _, sr := range view.Series() {
		api := APISeries{
			Revision: sr.Revision,
			Total:    sr.Total,
			Complete: sr.Complete,
			Patches:  make([]string, 0, len(sr.Patches)),
		}
		if sr.Cover != nil {
			api.Cover = sr.Cover.Row.MessageID
		}
		for _, p := range sr.Patches {
			api.Patches = append(api.Patches, p.Row.MessageID)
		}
		detail.Series = append(detail.Series, api)
	}

	writeJSON(w, http.StatusOK, detail)
}

// handleAPIMessage returns one message with body and patch artifacts.
// Archived messages never change, so the response carries an ETag derived
// from the stored blob.
func (s *Server) handleAPIMessage(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")
	messageID := messageIDParam(r)

	msg, err := s.Archive.Message(r.Context(), listName, messageID)
	if err != nil {
		s.writeArchiveError(w, err)
		return
	}

	etag := `"` + msg.Row.BlobPath + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, messageToAPI(msg, true))
}

// handleAPISearch runs a full-text query, scoped to one list with ?list=.
func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	listName := r.URL.Query().Get("list")

	limit := s.Config.PageSize
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	results, err := s.Archive.Search(r.Context(), listName, query, limit)
	if err != nil {
		s.writeArchiveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messagesToAPI(results))
}

// handleAPIChangelog returns the archive commit history, scoped to one
// list with ?list=.
func (s *Server) handleAPIChangelog(w http.ResponseWriter, r *http.Request) {
	listName := r.URL.Query().Get("list")

	var changelog []storage.CommitMetadata
	var err error
	if listName != "" {
		changelog, err = s.Archive.ListChangelog(listName, 100)
	} else {
		changelog, err = s.Archive.Changelog(100)
	}
	if err != nil {
		s.writeArchiveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commitsToAPI(changelog))
}

// handleAPIExtract runs the patch extractor over a posted body without
// touching the archive: classifier metadata in, artifacts out.
func (s *Server) handleAPIExtract(w http.ResponseWriter, r *http.Request) {
	var req APIExtractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Body == "" {
		writeJSONError(w, http.StatusBadRequest, "body is required")
		return
	}

	previewLines := req.PreviewLines
	if previewLines <= 0 {
		previewLines = s.Config.PreviewLines
	}

	text := patch.Extract(req.Body, req.Metadata)
	resp := APIExtractResponse{
		Patch:    text,
		HasPatch: text != "",
		Fold:     patch.FoldRange(req.Body, req.Metadata),
		Preview:  patch.Preview(req.Body, req.Metadata, previewLines),
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAPIReindex starts a background reindex.
func (s *Server) handleAPIReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.Archive.StartReindex(); err != nil {
		if errors.Is(err, archive.ErrImportRunning) {
			writeJSONError(w, http.StatusConflict, "an import or reindex is already running")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleAPIReindexStatus reports the state of the current or last ingest
// operation.
func (s *Server) handleAPIReindexStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Archive.Status())
}
