package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouteInfo describes a named route for URL generation.
type RouteInfo struct {
	ParamName string // empty for static routes
	Pattern   string // fmt pattern (e.g. "/%s/search") or literal path
	Fallback  string // URL when param is missing (parameterized routes only)
}

// RouteMap maps route names to their URL patterns.
// This is the single source of truth used by the urlFor template function.
// Thread and message URLs carry two parameters and are built inline in
// templates instead.
var RouteMap = map[string]RouteInfo{
	// Static routes
	"index":          {Pattern: "/"},
	"login":          {Pattern: "/-/login"},
	"logout":         {Pattern: "/-/logout"},
	"register":       {Pattern: "/-/register"},
	"settings":       {Pattern: "/-/settings"},
	"search":         {Pattern: "/-/search"},
	"changelog":      {Pattern: "/-/changelog"},
	"about":          {Pattern: "/-/about"},
	"feed":           {Pattern: "/-/feed.atom"},
	"admin":          {Pattern: "/-/admin"},
	"admin_users":    {Pattern: "/-/admin/users"},
	"admin_lists":    {Pattern: "/-/admin/lists"},
	"admin_settings": {Pattern: "/-/admin/settings"},

	// Parameterized routes
	"list":        {ParamName: "list", Pattern: "/%s", Fallback: "/"},
	"list_search": {ParamName: "list", Pattern: "/%s/search", Fallback: "/-/search"},
	"list_feed":   {ParamName: "list", Pattern: "/%s/feed.atom", Fallback: "/-/feed.atom"},
	"list_import": {ParamName: "list", Pattern: "/%s/import", Fallback: "/"},
	"static":      {ParamName: "filename", Pattern: "/static/%s", Fallback: "/static/"},
	"admin_user":  {ParamName: "id", Pattern: "/-/admin/users/%s", Fallback: "/-/admin/users"},
}

// URLFor generates a URL for the named route with optional parameters.
func URLFor(name string, args ...string) string {
	route, ok := RouteMap[name]
	if !ok {
		return "/"
	}
	if route.ParamName == "" {
		return route.Pattern
	}
	if len(args) >= 2 && args[0] == route.ParamName {
		return fmt.Sprintf(route.Pattern, args[1])
	}
	return route.Fallback
}

// Routes returns the Chi router with all routes configured.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	// Session middleware (adds user to context)
	r.Use(s.SessionManager.Middleware)

	// Static files (with long-lived cache headers)
	staticHandler := http.StripPrefix("/static/", http.FileServer(http.FS(s.StaticFS)))
	r.Handle("/static/*", staticCacheHandler(staticHandler))

	// Special routes (starting with /-/)
	r.Route("/-", func(r chi.Router) {
		// Public routes (no permission required)
		r.Get("/login", s.handleLogin)
		r.Post("/login", s.handleLoginPost)
		r.Get("/logout", s.handleLogout)
		r.Get("/register", s.handleRegister)
		r.Post("/register", s.handleRegisterPost)
		r.Get("/health", s.handleHealthCheck)
		r.Get("/robots.txt", s.handleRobotsTxt)
		r.Get("/about", s.handleAbout)

		// Read-protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.PermissionChecker.RequireRead)
			r.Get("/search", s.handleSearch)
			r.Post("/search", s.handleSearch)
			r.Get("/changelog", s.handleChangelog)
			r.Get("/feed", s.handleFeed)
			r.Get("/feed.rss", s.handleFeed)
			r.Get("/feed.atom", s.handleAtomFeed)
			r.Get("/sitemap.xml", s.handleSitemap)
		})

		// Routes for signed-in users
		r.Group(func(r chi.Router) {
			r.Use(s.PermissionChecker.RequireAuth)
			r.Get("/settings", s.handleSettings)
			r.Post("/settings", s.handleSettingsPost)
		})

		// Admin-protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.PermissionChecker.RequireAdmin)
			r.Get("/admin", s.handleAdmin)
			r.Get("/admin/users", s.handleAdminUsers)
			r.Get("/admin/users/{id}", s.handleAdminUserEdit)
			r.Post("/admin/users/{id}", s.handleAdminUserSave)
			r.Post("/admin/users/{id}/delete", s.handleAdminUserDelete)
			r.Get("/admin/lists", s.handleAdminLists)
			r.Post("/admin/lists", s.handleAdminListCreate)
			r.Post("/admin/lists/{id}", s.handleAdminListSave)
			r.Get("/admin/settings", s.handleAdminSettings)
			r.Post("/admin/settings", s.handleAdminSiteSettingsSave)
			r.Post("/admin/reindex", s.handleAdminReindex)
		})

		// JSON API v1
		r.Route("/api/v1", func(r chi.Router) {
			// Read-protected API routes
			r.Group(func(r chi.Router) {
				r.Use(s.PermissionChecker.RequireRead)
				r.Get("/lists", s.handleAPILists)
				r.Get("/lists/{list}/threads", s.handleAPIThreads)
				r.Get("/lists/{list}/threads/{threadID}", s.handleAPIThread)
				r.Get("/lists/{list}/messages/{messageID}", s.handleAPIMessage)
				r.Get("/search", s.handleAPISearch)
				r.Get("/changelog", s.handleAPIChangelog)
				r.Post("/extract", s.handleAPIExtract)
			})

			// Import-protected API routes
			r.Group(func(r chi.Router) {
				r.Use(s.PermissionChecker.RequireImport)
				r.Post("/reindex", s.handleAPIReindex)
				r.Get("/reindex/status", s.handleAPIReindexStatus)
			})
		})
	})

	// Index/home page (read-protected)
	r.Group(func(r chi.Router) {
		r.Use(s.PermissionChecker.RequireRead)
		r.Get("/", s.handleIndex)
	})

	// Mailing list routes
	r.Route("/{list}", func(r chi.Router) {
		// Read-protected list routes
		r.Group(func(r chi.Router) {
			r.Use(s.PermissionChecker.RequireRead)
			r.Get("/", s.handleListView)
			r.Get("/search", s.handleListSearch)
			r.Get("/feed.atom", s.handleListAtomFeed)
			r.Get("/t/{threadID}", s.handleThreadView)
			r.Get("/t/{threadID}.patch", s.handleThreadPatch)
			r.Get("/t/{threadID}/series", s.handleThreadSeries)
			r.Get("/m/{messageID}", s.handleMessageView)
			r.Get("/m/{messageID}/raw", s.handleMessageRaw)
			// Message ids routinely contain dots, which rules out a
			// ".patch" suffix pattern here. Thread ids are numeric.
			r.Get("/m/{messageID}/patch", s.handleMessagePatch)
		})

		// Moderate-protected list routes
		r.Group(func(r chi.Router) {
			r.Use(s.PermissionChecker.RequireModerate)
			r.Post("/m/{messageID}/hide", s.handleMessageHide)
			r.Post("/m/{messageID}/unhide", s.handleMessageUnhide)
		})

		// Import-protected list routes
		r.Group(func(r chi.Router) {
			r.Use(s.PermissionChecker.RequireImport)
			r.Post("/import", s.handleListImport)
		})
	})

	return r
}

// staticCacheHandler wraps a handler to add Cache-Control headers for static assets.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()))
	})
}
