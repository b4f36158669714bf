package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sa/gopherlist/internal/archive"
)

// handleSearch handles archive-wide search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.FormValue("query")
	if query == "" {
		query = r.URL.Query().Get("q")
	}

	var results []*archive.Message
	if query != "" {
		var err error
		results, err = s.Archive.Search(r.Context(), "", query, s.Config.PageSize)
		if err != nil {
			slog.Warn("search failed", "query", query, "error", err)
		}
	}

	data := NewGenericData("Search")
	data["query"] = query
	data["results"] = results
	s.renderTemplate(w, r, "search.html", data)
}

// handleListSearch handles search scoped to one list.
func (s *Server) handleListSearch(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")

	list, err := s.Archive.List(r.Context(), listName)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	query := r.FormValue("query")
	if query == "" {
		query = r.URL.Query().Get("q")
	}

	var results []*archive.Message
	if query != "" {
		results, err = s.Archive.Search(r.Context(), list.Name, query, s.Config.PageSize)
		if err != nil {
			slog.Warn("list search failed", "list", list.Name, "query", query, "error", err)
		}
	}

	data := NewListData("Search "+list.Name, list)
	data["query"] = query
	data["results"] = results
	s.renderTemplate(w, r, "search.html", data)
}
