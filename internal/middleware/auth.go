package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sa/gopherlist/internal/config"
	"github.com/sa/gopherlist/internal/models"
)

// Permission levels
const (
	PermissionRead     = "read"
	PermissionModerate = "moderate"
	PermissionImport   = "import"
	PermissionAdmin    = "admin"
)

// PermissionChecker provides permission checking middleware.
type PermissionChecker struct {
	config         *config.Config
	sessionManager *SessionManager
}

// NewPermissionChecker creates a new PermissionChecker.
func NewPermissionChecker(cfg *config.Config, sm *SessionManager) *PermissionChecker {
	return &PermissionChecker{
		config:         cfg,
		sessionManager: sm,
	}
}

// RequireRead returns middleware that requires read permission.
func (pc *PermissionChecker) RequireRead(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !pc.HasPermission(r, PermissionRead) {
			pc.handleUnauthorized(w, r, PermissionRead)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireModerate returns middleware that requires moderation permission.
func (pc *PermissionChecker) RequireModerate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !pc.HasPermission(r, PermissionModerate) {
			pc.handleUnauthorized(w, r, PermissionModerate)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireImport returns middleware that requires import permission.
func (pc *PermissionChecker) RequireImport(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !pc.HasPermission(r, PermissionImport) {
			pc.handleUnauthorized(w, r, PermissionImport)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin returns middleware that requires admin permission.
func (pc *PermissionChecker) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !pc.HasPermission(r, PermissionAdmin) {
			pc.handleUnauthorized(w, r, PermissionAdmin)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth returns middleware that requires authentication.
func (pc *PermissionChecker) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r)
		if user.IsAnonymous() {
			http.Redirect(w, r, "/-/login?next="+r.URL.Path, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HasPermission checks if the current user has the specified permission.
func (pc *PermissionChecker) HasPermission(r *http.Request, permission string) bool {
	user := GetUser(r)

	switch permission {
	case PermissionRead:
		return pc.canRead(user)
	case PermissionModerate:
		return pc.canModerate(user)
	case PermissionImport:
		return pc.canImport(user)
	case PermissionAdmin:
		return pc.canAdmin(user)
	default:
		return false
	}
}

// canRead checks if the user can browse the archive.
func (pc *PermissionChecker) canRead(user *User) bool {
	// Check config access level
	switch pc.config.ReadAccess {
	case "ANONYMOUS":
		return true
	case "REGISTERED":
		if user.IsAnonymous() {
			return false
		}
		// Registered user - check if approved and has read permission
		return user.Approved() || user.CanRead() || user.Admin()
	case "APPROVED":
		if user.IsAnonymous() {
			return false
		}
		return user.Approved() || user.Admin()
	case "ADMIN":
		if user.IsAnonymous() {
			return false
		}
		return user.Admin()
	default:
		return true // Default to anonymous access
	}
}

// canModerate checks if the user can hide and unhide messages.
func (pc *PermissionChecker) canModerate(user *User) bool {
	// Check config access level
	switch pc.config.ModerateAccess {
	case "ANONYMOUS":
		return true
	case "REGISTERED":
		if user.IsAnonymous() {
			return false
		}
		// Registered user - check if approved and has moderate permission
		return (user.Approved() && user.CanModerate()) || user.Admin()
	case "APPROVED":
		if user.IsAnonymous() {
			return false
		}
		return (user.Approved() && user.CanModerate()) || user.Admin()
	case "ADMIN":
		if user.IsAnonymous() {
			return false
		}
		return user.Admin()
	default:
		// Moderation never defaults to anonymous
		return user.Admin()
	}
}

// canImport checks if the user can import mailboxes and trigger reindexing.
func (pc *PermissionChecker) canImport(user *User) bool {
	// Check config access level
	switch pc.config.ImportAccess {
	case "ANONYMOUS":
		return true
	case "REGISTERED":
		if user.IsAnonymous() {
			return false
		}
		// Registered user - check if approved and has import permission
		return (user.Approved() && user.CanImport()) || user.Admin()
	case "APPROVED":
		if user.IsAnonymous() {
			return false
		}
		return (user.Approved() && user.CanImport()) || user.Admin()
	case "ADMIN":
		if user.IsAnonymous() {
			return false
		}
		return user.Admin()
	default:
		// Imports never default to anonymous
		return user.Admin()
	}
}

// canAdmin checks if the user is an admin.
func (pc *PermissionChecker) canAdmin(user *User) bool {
	if user.IsAnonymous() {
		return false
	}
	return user.Admin()
}

// handleUnauthorized handles unauthorized access.
func (pc *PermissionChecker) handleUnauthorized(w http.ResponseWriter, r *http.Request, permission string) {
	user := GetUser(r)

	if isAPIRequest(r) {
		w.Header().Set("Content-Type", "application/json")
		if user.IsAnonymous() {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
		} else {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "insufficient permissions"})
		}
		return
	}

	if user.IsAnonymous() {
		// Not logged in - redirect to login
		http.Redirect(w, r, "/-/login?next="+r.URL.Path, http.StatusFound)
		return
	}

	// Logged in but not authorized - show 403
	http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
}

// isAPIRequest checks if the request is for the JSON API.
func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/-/api/")
}

// User is an alias to models.User for use in this package.
type User = models.User
