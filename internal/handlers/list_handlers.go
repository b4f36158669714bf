package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sa/gopherlist/internal/archive"
	"github.com/sa/gopherlist/internal/storage"
	"github.com/sa/gopherlist/internal/util"
)

// handleIndex handles the front page: every visible list with its message
// count, archive-wide stats and the latest messages.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	lists, err := s.Archive.Lists(r.Context())
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	stats, err := s.Archive.Stats(r.Context())
	if err != nil {
		slog.Warn("failed to get archive stats", "error", err)
	}

	recent, err := s.Archive.RecentActivity(r.Context(), 10)
	if err != nil {
		slog.Warn("failed to get recent activity", "error", err)
	}

	data := NewGenericData("Lists")
	data["lists"] = lists
	data["stats"] = stats
	data["recent"] = recent
	s.renderTemplate(w, r, "index.html", data)
}

// handleListView handles the thread index of one list.
func (s *Server) handleListView(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")

	list, err := s.Archive.List(r.Context(), listName)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	threads, total, err := s.Archive.Threads(r.Context(), list.Name, page)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	data := NewListData(list.Name, list)
	data["threads"] = threads
	data["pagination"] = util.Paginate(total, page, s.Config.PageSize)
	data["total"] = total
	s.renderTemplate(w, r, "list.html", data)
}

// handleListImport handles an mbox upload into one list. The file is
// committed to the git store and indexed in the same pass.
func (s *Server) handleListImport(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")

	r.Body = http.MaxBytesReader(w, r.Body, s.Config.ImportMaxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Failed to parse form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("mbox")
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Failed to get mbox file: "+err.Error())
		return
	}
	defer file.Close()

	result, err := s.Archive.ImportMbox(r.Context(), listName, file, s.getAuthor(r))
	if err != nil {
		switch {
		case errors.Is(err, archive.ErrListNotFound):
			s.renderArchiveError(w, r, err)
		case errors.Is(err, archive.ErrImportRunning):
			s.SessionManager.AddFlashMessage(w, r, "danger", "Another import is already running, try again when it finishes.")
			http.Redirect(w, r, "/"+listName, http.StatusFound)
		default:
			s.renderError(w, r, http.StatusInternalServerError, "Import failed: "+err.Error())
		}
		return
	}

	slog.Info("mbox imported", "list", listName, "file", header.Filename,
		"imported", result.Imported, "skipped", result.Skipped, "failed", result.Failed)
	s.SessionManager.AddFlashMessage(w, r, "success",
		fmt.Sprintf("Imported %d %s (%d skipped, %d failed)",
			result.Imported, util.Pluralize(result.Imported, "messages", "message"), result.Skipped, result.Failed))
	http.Redirect(w, r, "/"+listName, http.StatusFound)
}

// handleChangelog handles the archive commit history, optionally scoped to
// one list via ?list=.
func (s *Server) handleChangelog(w http.ResponseWriter, r *http.Request) {
	listName := r.URL.Query().Get("list")

	var changelog []storage.CommitMetadata
	var err error
	if listName != "" {
		changelog, err = s.Archive.ListChangelog(listName, 100)
	} else {
		changelog, err = s.Archive.Changelog(100)
	}
	if err != nil {
		changelog = []storage.CommitMetadata{}
	}

	data := NewGenericData("Changelog")
	data["log"] = changelog
	data["list_name"] = listName
	s.renderTemplate(w, r, "changelog.html", data)
}

// handleAbout handles the about page.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Archive.Stats(r.Context())
	if err != nil {
		slog.Warn("failed to get archive stats", "error", err)
	}

	data := NewGenericData("About")
	data["version"] = s.Version
	data["stats"] = stats
	s.renderTemplate(w, r, "about.html", data)
}
