package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sa/gopherlist/internal/util"
)

// LoadTemplates loads templates from the given filesystem.
// Each page template is parsed separately with base.html to avoid conflicts.
func (s *Server) LoadTemplates(fsys fs.FS) error {
	funcMap := s.templateFuncs()

	slog.Info("loading templates")

	// Read shared template files
	baseContent, err := fs.ReadFile(fsys, "base.html")
	if err != nil {
		return fmt.Errorf("failed to read base.html: %w", err)
	}
	messageContent, err := fs.ReadFile(fsys, "message.html")
	if err != nil {
		return fmt.Errorf("failed to read message.html: %w", err)
	}

	// Find all template files
	entries, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return fmt.Errorf("failed to glob templates: %w", err)
	}

	// Create a map to store each page's template set
	s.TemplateMap = make(map[string]*template.Template)

	for _, entry := range entries {
		name := path.Base(entry)
		// Skip shared templates
		if name == "base.html" || name == "message.html" {
			continue
		}

		// Create a new template set for each page
		tmpl := template.New("base").Funcs(funcMap)

		// Parse base.html
		tmpl, err = tmpl.Parse(string(baseContent))
		if err != nil {
			return fmt.Errorf("failed to parse base.html for %s: %w", name, err)
		}

		// Parse message.html (for message_* defines shared with the thread view)
		tmpl, err = tmpl.Parse(string(messageContent))
		if err != nil {
			return fmt.Errorf("failed to parse message.html for %s: %w", name, err)
		}

		// Parse the specific page template (will override generic_content if defined)
		specificContent, err := fs.ReadFile(fsys, entry)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		tmpl, err = tmpl.Parse(string(specificContent))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}

		s.TemplateMap[name] = tmpl
		slog.Debug("loaded template", "name", name)
	}

	// Also add message.html to the map.
	// It needs itself + base + an empty generic_content.
	emptyGeneric := `{{define "generic_content"}}{{end}}`
	tmpl := template.New("base").Funcs(funcMap)
	for _, content := range []string{string(baseContent), string(messageContent), emptyGeneric} {
		tmpl, err = tmpl.Parse(content)
		if err != nil {
			return fmt.Errorf("failed to parse shared template message.html: %w", err)
		}
	}
	s.TemplateMap["message.html"] = tmpl
	slog.Debug("loaded template", "name", "message.html")

	return nil
}

// TemplateFuncsForTest exposes templateFuncs for external test packages.
func (s *Server) TemplateFuncsForTest() template.FuncMap {
	return s.templateFuncs()
}

// templateFuncs returns the template function map.
func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"debugUnixtime": func(p string) string {
			if s.Config.DevMode {
				return p + "?" + time.Now().Format("20060102150405")
			}
			if s.Version != "" {
				return p + "?" + s.Version
			}
			return p
		},
		"pluralize": util.Pluralize,
		"formatDatetime": func(t time.Time, format string) string {
			return util.FormatDatetime(t, format)
		},
		"sizeof": util.SizeofFmt,
		"safe": func(s string) template.HTML {
			return template.HTML(s)
		},
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s)
		},
		"trimPrefix": strings.TrimPrefix,
		"pathEscape": url.PathEscape,
		"urlFor":     URLFor,
		"hasPermission": func(perm string, perms map[string]bool) bool {
			if perms == nil {
				return false
			}
			return perms[perm]
		},
		"renderBody": func(list, body string) template.HTML {
			return s.Renderer.Body(list, body)
		},
		"markdown": func(source string) template.HTML {
			return s.Renderer.Markdown(source)
		},
	}
}
