// Package main provides the entry point for gopherlist.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sa/gopherlist/internal/archive"
	"github.com/sa/gopherlist/internal/auth"
	"github.com/sa/gopherlist/internal/config"
	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/handlers"
	"github.com/sa/gopherlist/internal/storage"
	"github.com/sa/gopherlist/web"
)

// InitConfig represents the initialization configuration from JSON.
type InitConfig struct {
	Site  *InitSite  `json:"site,omitempty"`
	Admin *InitAdmin `json:"admin,omitempty"`
	Lists []InitList `json:"lists,omitempty"`
}

// InitSite holds site branding settings.
type InitSite struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// InitAdmin holds initial admin user settings.
type InitAdmin struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// InitList registers one mailing list at startup.
type InitList struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
}

// Version is set at build time.
var Version = "dev"

// initLogger configures the default slog logger based on config.
func initLogger(cfg *config.Config) {
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// fatal logs an error message and exits the process.
func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to YAML configuration file")
	host := flag.String("host", "", "Host/IP to bind to (default: all interfaces)")
	port := flag.Int("port", 0, "HTTP server port (default: 8080)")
	repoPath := flag.String("repository", "", "Path to the archive git repository")
	dbURI := flag.String("database", "", "Database URI (default: sqlite file in the repository)")
	listsPath := flag.String("lists", "", "Path to lists.yaml registry seeded at startup")
	importSpec := flag.String("import", "", "One-shot mbox import on boot, as list=path")
	templatesPath := flag.String("templates", "", "Path to templates directory (overrides embedded)")
	staticPath := flag.String("static", "", "Path to static files directory (overrides embedded)")
	initFile := flag.String("init", "", "Path to initialization JSON file (run once to set up site)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	devMode := flag.Bool("dev", false, "Enable development mode")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("gopherlist", Version)
		return
	}

	// Load configuration: defaults, then optional YAML file, then env
	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.LoadWithFile(*configPath)
		if err != nil {
			slog.Error("failed to load configuration file", "path", *configPath, "error", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Load()
	}

	// Override config from command line
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *repoPath != "" {
		cfg.Repository = *repoPath
	}
	if *dbURI != "" {
		cfg.DatabaseURI = *dbURI
	}
	if *listsPath != "" {
		cfg.ListsFile = *listsPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *devMode {
		cfg.DevMode = true
	}

	// Initialize structured logger
	initLogger(cfg)

	// Create repository if it doesn't exist
	if cfg.Repository != "" {
		if _, err := os.Stat(cfg.Repository); os.IsNotExist(err) {
			slog.Info("creating repository", "path", cfg.Repository)
			if err := os.MkdirAll(cfg.Repository, 0o755); err != nil {
				fatal("failed to create repository directory", "error", err)
			}
		}
	}

	// In dev mode, relax the SECRET_KEY requirement
	if cfg.DevMode {
		slog.Warn("dev mode is enabled, do NOT use in production")
		if cfg.SecretKey == "CHANGE ME" || len(cfg.SecretKey) < 16 {
			cfg.SecretKey = "dev-mode-insecure-key-not-for-production"
			slog.Warn("using auto-generated development secret key")
		}
	}

	// Validate config (fatal in production)
	if err := cfg.Validate(); err != nil {
		fatal("configuration error", "error", err)
	}

	slog.Info("starting gopherlist", "version", Version)

	// Initialize storage
	var store storage.Storage
	var err error

	// Check if repository is a git repo, if not, initialize it
	gitDir := filepath.Join(cfg.Repository, ".git")
	_, statErr := os.Stat(gitDir)
	if os.IsNotExist(statErr) {
		slog.Info("initializing git repository", "path", cfg.Repository)
		store, err = storage.NewGitStorage(cfg.Repository, true)
	} else {
		store, err = storage.NewGitStorage(cfg.Repository, false)
	}
	if err != nil {
		fatal("failed to initialize storage", "error", err)
	}

	// Initialize database
	uri := cfg.DatabaseURI
	if uri == "" || uri == "sqlite:///:memory:" {
		// Default to a file next to the archive blobs
		uri = "sqlite:///" + filepath.Join(cfg.Repository, ".archive.db")
	}

	database, err := db.Open(uri)
	if err != nil {
		fatal("failed to open database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(context.Background()); err != nil {
		fatal("failed to run migrations", "error", err)
	}

	// Seed the list registry from lists.yaml
	if cfg.ListsFile != "" {
		if err := seedLists(cfg.ListsFile, database); err != nil {
			fatal("failed to seed list registry", "error", err)
		}
	}

	// Process init file if provided
	if *initFile != "" {
		if err := processInitFile(*initFile, database); err != nil {
			fatal("failed to process init file", "error", err)
		}
	}

	// Create server
	server, err := handlers.NewServer(cfg, store, database, Version)
	if err != nil {
		fatal("failed to create server", "error", err)
	}

	// One-shot mbox import requested on the command line
	if *importSpec != "" {
		if err := importOnBoot(server.Archive, *importSpec); err != nil {
			fatal("boot import failed", "error", err)
		}
	}

	// Load templates: use filesystem override if provided, otherwise embedded
	var templatesFS fs.FS
	if *templatesPath != "" {
		slog.Info("loading templates from filesystem", "path", *templatesPath)
		templatesFS = os.DirFS(*templatesPath)
	} else {
		slog.Info("loading templates from embedded FS")
		templatesFS, err = fs.Sub(web.TemplatesFS, "templates")
		if err != nil {
			fatal("failed to access embedded templates", "error", err)
		}
	}
	if err := server.LoadTemplates(templatesFS); err != nil {
		fatal("failed to load templates", "error", err)
	}

	// Set static FS: use filesystem override if provided, otherwise embedded
	if *staticPath != "" {
		slog.Info("serving static files from filesystem", "path", *staticPath)
		server.StaticFS = os.DirFS(*staticPath)
	} else {
		slog.Info("serving static files from embedded FS")
		server.StaticFS, err = fs.Sub(web.StaticFS, "static")
		if err != nil {
			fatal("failed to access embedded static files", "error", err)
		}
	}

	// Create router
	var router http.Handler = server.Routes()

	// In dev mode with a template directory on disk, re-parse templates on
	// every request so edits show up without a restart.
	if cfg.DevMode && *templatesPath != "" {
		slog.Info("dev mode: reloading templates per request")
		router = reloadTemplates(server, templatesFS, router)
	}

	// Start server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		displayHost := cfg.Host
		if displayHost == "" {
			displayHost = "localhost"
		}
		slog.Info("server listening", "address", fmt.Sprintf("http://%s:%d", displayHost, cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// reloadTemplates wraps a handler to re-parse templates before each request.
func reloadTemplates(server *handlers.Server, fsys fs.FS, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := server.LoadTemplates(fsys); err != nil {
			slog.Error("template reload failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// seedLists upserts the YAML list registry into the database. Lists are
// never deleted here; removing a list from the file only stops updates.
func seedLists(path string, database *db.Database) error {
	defs, err := config.LoadLists(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, def := range defs {
		existing, err := database.Queries.GetListByName(ctx, def.Name)
		if errors.Is(err, sql.ErrNoRows) {
			slog.Info("registering list", "name", def.Name, "address", def.Address)
			_, err := database.Queries.CreateList(ctx, db.CreateListParams{
				Name:        def.Name,
				Address:     def.Address,
				Description: sql.NullString{String: def.Description, Valid: def.Description != ""},
				IsHidden:    sql.NullBool{Bool: def.Hidden, Valid: true},
			})
			if err != nil {
				return fmt.Errorf("creating list %s: %w", def.Name, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("looking up list %s: %w", def.Name, err)
		}

		err = database.Queries.UpdateList(ctx, db.UpdateListParams{
			ID:          existing.ID,
			Address:     def.Address,
			Description: sql.NullString{String: def.Description, Valid: def.Description != ""},
			IsHidden:    sql.NullBool{Bool: def.Hidden, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("updating list %s: %w", def.Name, err)
		}
	}
	return nil
}

// importOnBoot runs a single mbox import before the server starts. The
// spec format is list=path.
func importOnBoot(svc *archive.Service, spec string) error {
	listName, mboxPath, ok := strings.Cut(spec, "=")
	if !ok || listName == "" || mboxPath == "" {
		return fmt.Errorf("invalid -import value %q, want list=path", spec)
	}

	f, err := os.Open(mboxPath)
	if err != nil {
		return fmt.Errorf("opening mbox: %w", err)
	}
	defer f.Close()

	author := storage.Author{Name: "importer", Email: "importer@localhost"}
	result, err := svc.ImportMbox(context.Background(), listName, f, author)
	if err != nil {
		return fmt.Errorf("importing %s into %s: %w", mboxPath, listName, err)
	}
	slog.Info("boot import finished",
		"list", listName,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return nil
}

// processInitFile reads and applies initialization settings from a JSON file.
func processInitFile(filePath string, database *db.Database) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read init file: %w", err)
	}

	var initCfg InitConfig
	if err := json.Unmarshal(data, &initCfg); err != nil {
		return fmt.Errorf("failed to parse init file: %w", err)
	}

	ctx := context.Background()

	// Process site settings
	if initCfg.Site != nil {
		if initCfg.Site.Name != "" {
			slog.Info("setting site name", "name", initCfg.Site.Name)
			params := db.UpsertPreferenceParams{
				Name:  "site_name",
				Value: sql.NullString{String: initCfg.Site.Name, Valid: true},
			}
			if err := database.Queries.UpsertPreference(ctx, params); err != nil {
				return fmt.Errorf("failed to set site name: %w", err)
			}
		}
		if initCfg.Site.Description != "" {
			slog.Info("setting site description")
			params := db.UpsertPreferenceParams{
				Name:  "site_description",
				Value: sql.NullString{String: initCfg.Site.Description, Valid: true},
			}
			if err := database.Queries.UpsertPreference(ctx, params); err != nil {
				return fmt.Errorf("failed to set site description: %w", err)
			}
		}
	}

	// Register lists named in the init file
	for _, l := range initCfg.Lists {
		def := config.ListDef{
			Name:        l.Name,
			Address:     l.Address,
			Description: l.Description,
			Hidden:      l.Hidden,
		}
		if err := config.ValidateList(def); err != nil {
			return fmt.Errorf("init list %s: %w", l.Name, err)
		}

		_, err := database.Queries.GetListByName(ctx, def.Name)
		if err == nil {
			slog.Info("list already exists, skipping", "name", def.Name)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check for existing list: %w", err)
		}

		slog.Info("registering list", "name", def.Name, "address", def.Address)
		_, err = database.Queries.CreateList(ctx, db.CreateListParams{
			Name:        def.Name,
			Address:     def.Address,
			Description: sql.NullString{String: def.Description, Valid: def.Description != ""},
			IsHidden:    sql.NullBool{Bool: def.Hidden, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("failed to create list %s: %w", def.Name, err)
		}
	}

	// Process admin user
	if initCfg.Admin != nil {
		if initCfg.Admin.Email == "" || initCfg.Admin.Password == "" {
			return fmt.Errorf("admin email and password are required")
		}

		// Check if user already exists
		_, err := database.Queries.GetUserByEmail(ctx, initCfg.Admin.Email)
		if err == sql.ErrNoRows {
			// Create admin user
			slog.Info("creating admin user", "name", initCfg.Admin.Name, "email", initCfg.Admin.Email)

			passwordHash, err := auth.HashPassword(initCfg.Admin.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}

			now := time.Now()
			params := db.CreateUserParams{
				Name:           initCfg.Admin.Name,
				Email:          initCfg.Admin.Email,
				PasswordHash:   sql.NullString{String: passwordHash, Valid: true},
				FirstSeen:      sql.NullTime{Time: now, Valid: true},
				LastSeen:       sql.NullTime{Time: now, Valid: true},
				IsApproved:     sql.NullBool{Bool: true, Valid: true},
				IsAdmin:        sql.NullBool{Bool: true, Valid: true},
				EmailConfirmed: sql.NullBool{Bool: true, Valid: true},
				AllowRead:      sql.NullBool{Bool: true, Valid: true},
				AllowModerate:  sql.NullBool{Bool: true, Valid: true},
				AllowImport:    sql.NullBool{Bool: true, Valid: true},
			}

			if _, err := database.Queries.CreateUser(ctx, params); err != nil {
				return fmt.Errorf("failed to create admin user: %w", err)
			}
			slog.Info("admin user created successfully")
		} else if err != nil {
			return fmt.Errorf("failed to check for existing user: %w", err)
		} else {
			slog.Info("admin user already exists, skipping creation", "email", initCfg.Admin.Email)
		}
	}

	slog.Info("initialization complete")
	return nil
}
