package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sa/gopherlist/internal/archive"
	"github.com/sa/gopherlist/internal/config"
	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/middleware"
)

// requireAdmin is a helper that checks admin access and redirects if not authorized.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	user := middleware.GetUser(r)
	if !user.IsAuthenticated() {
		http.Redirect(w, r, "/-/login?next="+r.URL.Path, http.StatusFound)
		return false
	}
	if !user.Admin() {
		s.renderError(w, r, http.StatusForbidden, "Access denied")
		return false
	}
	return true
}

// handleAdmin handles the admin dashboard.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	users, err := s.Auth.ListUsers(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
	}
	stats, err := s.Archive.Stats(r.Context())
	if err != nil {
		slog.Error("failed to get archive stats", "error", err)
	}

	data := NewGenericData("Admin Dashboard")
	data["user_count"] = len(users)
	data["stats"] = stats
	data["ingest"] = s.Archive.Status()
	data["version"] = s.Version
	s.renderTemplate(w, r, "admin.html", data)
}

// handleAdminUsers handles the user list page.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	users, err := s.Auth.ListUsers(r.Context())
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Failed to list users")
		return
	}

	data := NewGenericData("User Management")
	data["users"] = users
	s.renderTemplate(w, r, "admin_users.html", data)
}

// handleAdminUserEdit handles the user edit form.
func (s *Server) handleAdminUserEdit(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := parseInt64(idStr)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := s.Auth.GetUserByID(r.Context(), id)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "User not found")
		return
	}

	data := NewGenericData("Edit User: " + user.GetName())
	data["edit_user"] = user
	s.renderTemplate(w, r, "admin_user_edit.html", data)
}

// handleAdminUserSave handles saving user changes.
func (s *Server) handleAdminUserSave(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := parseInt64(idStr)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Get current user to update
	user, err := s.Auth.GetUserByID(r.Context(), id)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "User not found")
		return
	}

	// Update user fields
	name := r.FormValue("name")
	if name == "" {
		name = user.Name
	}
	isApproved := r.FormValue("is_approved") == "on"
	isAdmin := r.FormValue("is_admin") == "on"
	allowRead := r.FormValue("allow_read") == "on"
	allowModerate := r.FormValue("allow_moderate") == "on"
	allowImport := r.FormValue("allow_import") == "on"

	params := db.UpdateUserParams{
		ID:             id,
		Name:           name,
		IsApproved:     db.NullBool(isApproved),
		IsAdmin:        db.NullBool(isAdmin),
		EmailConfirmed: user.EmailConfirmed,
		AllowRead:      db.NullBool(allowRead),
		AllowModerate:  db.NullBool(allowModerate),
		AllowImport:    db.NullBool(allowImport),
	}

	if err := s.DB.Queries.UpdateUser(r.Context(), params); err != nil {
		s.SessionManager.AddFlashMessage(w, r, "danger", "Failed to update user")
		http.Redirect(w, r, fmt.Sprintf("/-/admin/users/%d", id), http.StatusFound)
		return
	}

	s.SessionManager.AddFlashMessage(w, r, "success", "User updated successfully")
	http.Redirect(w, r, "/-/admin/users", http.StatusFound)
}

// handleAdminUserDelete handles deleting a user.
func (s *Server) handleAdminUserDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := parseInt64(idStr)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	// Don't allow deleting yourself
	currentUser := middleware.GetUser(r)
	if currentUser.ID == id {
		s.SessionManager.AddFlashMessage(w, r, "danger", "Cannot delete your own account")
		http.Redirect(w, r, "/-/admin/users", http.StatusFound)
		return
	}

	if err := s.Auth.DeleteUser(r.Context(), id); err != nil {
		s.SessionManager.AddFlashMessage(w, r, "danger", "Failed to delete user")
	} else {
		s.SessionManager.AddFlashMessage(w, r, "success", "User deleted successfully")
	}

	http.Redirect(w, r, "/-/admin/users", http.StatusFound)
}

// handleAdminLists handles the list management page. Hidden lists show up
// here even though the public index skips them.
func (s *Server) handleAdminLists(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	lists, err := s.DB.Queries.ListAllLists(r.Context())
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Failed to list mailing lists")
		return
	}

	data := NewGenericData("List Management")
	data["lists"] = lists
	data["ingest"] = s.Archive.Status()
	s.renderTemplate(w, r, "admin_lists.html", data)
}

// handleAdminListCreate handles registering a new mailing list.
func (s *Server) handleAdminListCreate(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	def := config.ListDef{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Address:     strings.TrimSpace(r.FormValue("address")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Hidden:      r.FormValue("hidden") == "on",
	}

	if err := config.ValidateList(def); err != nil {
		s.SessionManager.AddFlashMessage(w, r, "danger", err.Error())
		http.Redirect(w, r, "/-/admin/lists", http.StatusFound)
		return
	}

	if _, err := s.DB.Queries.GetListByName(r.Context(), def.Name); err == nil {
		s.SessionManager.AddFlashMessage(w, r, "danger", "A list with that name already exists")
		http.Redirect(w, r, "/-/admin/lists", http.StatusFound)
		return
	}

	_, err := s.DB.Queries.CreateList(r.Context(), db.CreateListParams{
		Name:        def.Name,
		Address:     def.Address,
		Description: db.NullString(def.Description),
		IsHidden:    db.NullBool(def.Hidden),
	})
	if err != nil {
		s.SessionManager.AddFlashMessage(w, r, "danger", "Failed to create list")
		http.Redirect(w, r, "/-/admin/lists", http.StatusFound)
		return
	}

	slog.Info("list created", "list", def.Name, "address", def.Address)
	s.SessionManager.AddFlashMessage(w, r, "success", "List created, upload an mbox to fill it")
	http.Redirect(w, r, "/-/admin/lists", http.StatusFound)
}

// handleAdminListSave handles updating a list's address, description and
// visibility. The name is the URL slug and stays fixed.
func (s *Server) handleAdminListSave(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := parseInt64(idStr)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid list ID")
		return
	}

	list, err := s.DB.Queries.GetListByID(r.Context(), id)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "List not found")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	address := strings.TrimSpace(r.FormValue("address"))
	if address == "" {
		address = list.Address
	}
	description := strings.TrimSpace(r.FormValue("description"))
	hidden := r.FormValue("hidden") == "on"

	def := config.ListDef{
		Name:        list.Name,
		Address:     address,
		Description: description,
		Hidden:      hidden,
	}
	if err := config.ValidateList(def); err != nil {
		s.SessionManager.AddFlashMessage(w, r, "danger", err.Error())
		http.Redirect(w, r, "/-/admin/lists", http.StatusFound)
		return
	}

	err = s.DB.Queries.UpdateList(r.Context(), db.UpdateListParams{
		ID:          id,
		Address:     address,
		Description: db.NullString(description),
		IsHidden:    db.NullBool(hidden),
	})
	if err != nil {
		s.SessionManager.AddFlashMessage(w, r, "danger", "Failed to update list")
	} else {
		s.SessionManager.AddFlashMessage(w, r, "success", "List updated successfully")
	}
	http.Redirect(w, r, "/-/admin/lists", http.StatusFound)
}

// handleAdminSettings handles the site settings page.
func (s *Server) handleAdminSettings(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	data := NewGenericData("Site Settings")
	data["site_settings"] = s.Config
	data["current_site"] = s.getSiteSettings(r.Context())
	s.renderTemplate(w, r, "admin_settings.html", data)
}

// handleAdminSiteSettingsSave handles saving site name and description.
func (s *Server) handleAdminSiteSettingsSave(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	siteName := strings.TrimSpace(r.FormValue("site_name"))
	siteDescription := strings.TrimSpace(r.FormValue("site_description"))

	ctx := r.Context()

	// Save site name to preferences
	if siteName != "" {
		params := db.UpsertPreferenceParams{
			Name:  "site_name",
			Value: db.NullString(siteName),
		}
		if err := s.DB.Queries.UpsertPreference(ctx, params); err != nil {
			s.SessionManager.AddFlashMessage(w, r, "danger", "Failed to save site name")
			http.Redirect(w, r, "/-/admin/settings", http.StatusFound)
			return
		}
	}

	// Save site description to preferences (can be empty to use default)
	params := db.UpsertPreferenceParams{
		Name:  "site_description",
		Value: db.NullString(siteDescription),
	}
	if err := s.DB.Queries.UpsertPreference(ctx, params); err != nil {
		s.SessionManager.AddFlashMessage(w, r, "danger", "Failed to save site description")
		http.Redirect(w, r, "/-/admin/settings", http.StatusFound)
		return
	}

	s.SessionManager.AddFlashMessage(w, r, "success", "Site settings updated successfully")
	http.Redirect(w, r, "/-/admin/settings", http.StatusFound)
}

// handleAdminReindex starts a background rebuild of the index database
// from the git store.
func (s *Server) handleAdminReindex(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	if err := s.Archive.StartReindex(); err != nil {
		if errors.Is(err, archive.ErrImportRunning) {
			s.SessionManager.AddFlashMessage(w, r, "danger", "An import or reindex is already running")
		} else {
			s.SessionManager.AddFlashMessage(w, r, "danger", "Failed to start reindex: "+err.Error())
		}
		http.Redirect(w, r, "/-/admin", http.StatusFound)
		return
	}

	s.SessionManager.AddFlashMessage(w, r, "success", "Reindex started in the background")
	http.Redirect(w, r, "/-/admin", http.StatusFound)
}
