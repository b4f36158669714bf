// Package handlers provides HTTP handlers for gopherlist.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sa/gopherlist/internal/archive"
	"github.com/sa/gopherlist/internal/auth"
	"github.com/sa/gopherlist/internal/config"
	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/middleware"
	"github.com/sa/gopherlist/internal/renderer"
	"github.com/sa/gopherlist/internal/storage"
)

// Server holds all dependencies for HTTP handlers.
type Server struct {
	Config            *config.Config
	Storage           storage.Storage
	Archive           *archive.Service
	DB                *db.Database
	Renderer          *renderer.Renderer
	Templates         *template.Template
	TemplateMap       map[string]*template.Template
	StaticFS          fs.FS
	Version           string
	Auth              *auth.Auth
	SessionManager    *middleware.SessionManager
	PermissionChecker *middleware.PermissionChecker
}

// NewServer creates a new Server with the given dependencies.
func NewServer(cfg *config.Config, store storage.Storage, database *db.Database, version string) (*Server, error) {
	rend := renderer.New()
	authService := auth.New(cfg, database.Queries)
	sessionManager := middleware.NewSessionManager(cfg.SecretKey, database.Queries)
	permChecker := middleware.NewPermissionChecker(cfg, sessionManager)

	archiveService := archive.NewService(store, cfg, database)

	s := &Server{
		Config:            cfg,
		Storage:           store,
		Archive:           archiveService,
		DB:                database,
		Renderer:          rend,
		Version:           version,
		Auth:              authService,
		SessionManager:    sessionManager,
		PermissionChecker: permChecker,
	}

	return s, nil
}

// SiteSettings holds customizable site settings that can be changed at runtime.
type SiteSettings struct {
	Name        string
	Description string
}

// getSiteSettings returns site settings from preferences or config.
func (s *Server) getSiteSettings(ctx context.Context) SiteSettings {
	settings := SiteSettings{
		Name:        s.Config.SiteName,
		Description: s.Config.SiteDescription,
	}

	// Try to get site name from preferences
	if pref, err := s.DB.Queries.GetPreference(ctx, "site_name"); err == nil && pref.Value.Valid && pref.Value.String != "" {
		settings.Name = pref.Value.String
	}

	// Try to get site description from preferences
	if pref, err := s.DB.Queries.GetPreference(ctx, "site_description"); err == nil && pref.Value.Valid && pref.Value.String != "" {
		settings.Description = pref.Value.String
	}

	return settings
}

// renderTemplate renders a template with common context.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}

	// Add common context
	data["config"] = s.Config
	data["Version"] = s.Version

	// Add site settings (from preferences or config)
	data["site"] = s.getSiteSettings(r.Context())

	// Add auth context from session
	user := middleware.GetUser(r)
	data["current_user"] = map[string]interface{}{
		"is_authenticated": user.IsAuthenticated(),
		"is_anonymous":     user.IsAnonymous(),
		"is_approved":      user.Approved(),
		"is_admin":         user.Admin(),
		"name":             user.GetName(),
		"email":            user.GetEmail(),
	}
	data["auth_supported_features"] = map[string]bool{
		"logout":   true,
		"register": !s.Config.DisableRegistration,
	}

	// Add permission context for templates
	data["permissions"] = map[string]bool{
		"read":     s.PermissionChecker.HasPermission(r, middleware.PermissionRead),
		"moderate": s.PermissionChecker.HasPermission(r, middleware.PermissionModerate),
		"import":   s.PermissionChecker.HasPermission(r, middleware.PermissionImport),
		"admin":    s.PermissionChecker.HasPermission(r, middleware.PermissionAdmin),
	}

	// Add flash messages
	if flashes := middleware.GetFlashes(r); len(flashes) > 0 {
		data["flashes"] = flashes
	}

	// Get the template for this page
	tmpl, ok := s.TemplateMap[name]
	if !ok {
		slog.Error("template not found", "name", name)
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}

	// Execute the base template
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		slog.Error("template execution error", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// renderError renders a styled error page with the given HTTP status code.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, code int, message string) {
	title := http.StatusText(code)
	if title == "" {
		title = "Error"
	}
	w.WriteHeader(code)
	data := NewGenericData(title)
	data["error_title"] = title
	data["error_message"] = message
	s.renderTemplate(w, r, "error.html", data)
}

// renderArchiveError maps archive lookup failures to an error page.
func (s *Server) renderArchiveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, archive.ErrListNotFound):
		s.renderError(w, r, http.StatusNotFound, "No such mailing list.")
	case errors.Is(err, archive.ErrThreadNotFound):
		s.renderError(w, r, http.StatusNotFound, "No such thread.")
	case errors.Is(err, archive.ErrMessageNotFound):
		s.renderError(w, r, http.StatusNotFound, "No such message.")
	case errors.Is(err, archive.ErrRevisionNotFound):
		s.renderError(w, r, http.StatusNotFound, "No such patch series revision.")
	default:
		slog.Error("archive error", "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "Something went wrong while reading the archive.")
	}
}

// getAuthor extracts a storage.Author from the request's authenticated user,
// falling back to the importer identity for unauthenticated callers.
func (s *Server) getAuthor(r *http.Request) storage.Author {
	user := middleware.GetUser(r)
	author := storage.Author{
		Name:  user.GetName(),
		Email: user.GetEmail(),
	}
	if author.Name == "" {
		author.Name = "importer"
	}
	if author.Email == "" {
		author.Email = "importer@localhost"
	}
	return author
}

// parseInt64 parses a string to int64.
func parseInt64(s string) (int64, error) {
	var i int64
	_, err := fmt.Sscanf(s, "%d", &i)
	return i, err
}
