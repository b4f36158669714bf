package handlers

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sa/gopherlist/internal/archive"
)

// messageURL builds the absolute URL of a message.
func (s *Server) messageURL(listName, messageID string) string {
	return s.Config.SiteURL + "/" + listName + "/m/" + url.PathEscape(messageID)
}

// feedTitle returns a displayable title for a feed item.
func feedTitle(msg *archive.Message) string {
	if t := msg.Row.Subject.String; t != "" {
		return t
	}
	return msg.Row.MessageID
}

// handleFeed handles the site-wide RSS feed.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	recent, err := s.Archive.RecentActivity(r.Context(), s.Config.FeedLimit)
	if err != nil {
		slog.Warn("failed to get messages for feed", "error", err)
	}

	site := s.getSiteSettings(r.Context())

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>%s</title>
<link>%s</link>
<description>Recent messages</description>
`, html.EscapeString(site.Name), s.Config.SiteURL)

	for _, msg := range recent {
		fmt.Fprintf(w, `<item>
<title>%s</title>
<link>%s</link>
<guid>%s</guid>
<pubDate>%s</pubDate>
<author>%s</author>
</item>
`, html.EscapeString(feedTitle(msg)), s.messageURL(msg.List, msg.Row.MessageID),
			html.EscapeString(msg.Row.MessageID), msg.Row.Date.Time.Format(time.RFC1123Z),
			html.EscapeString(msg.Row.FromEmail.String))
	}

	fmt.Fprint(w, `</channel>
</rss>`)
}

// handleAtomFeed handles the site-wide Atom feed.
func (s *Server) handleAtomFeed(w http.ResponseWriter, r *http.Request) {
	recent, err := s.Archive.RecentActivity(r.Context(), s.Config.FeedLimit)
	if err != nil {
		slog.Warn("failed to get messages for feed", "error", err)
	}

	site := s.getSiteSettings(r.Context())
	s.writeAtomFeed(w, site.Name, s.Config.SiteURL+"/", recent)
}

// handleListAtomFeed handles the Atom feed of one list.
func (s *Server) handleListAtomFeed(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")

	list, err := s.Archive.List(r.Context(), listName)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	recent, err := s.Archive.RecentMessages(r.Context(), list.Name, s.Config.FeedLimit)
	if err != nil {
		slog.Warn("failed to get messages for list feed", "list", list.Name, "error", err)
	}

	s.writeAtomFeed(w, list.Name, s.Config.SiteURL+"/"+list.Name, recent)
}

// writeAtomFeed writes an Atom feed of the given messages.
func (s *Server) writeAtomFeed(w http.ResponseWriter, title, feedID string, msgs []*archive.Message) {
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>%s</title>
<link href="%s"/>
<id>%s</id>
`, html.EscapeString(title), feedID, feedID)

	if len(msgs) > 0 {
		fmt.Fprintf(w, `<updated>%s</updated>
`, msgs[0].Row.Date.Time.Format(time.RFC3339))
	}

	for _, msg := range msgs {
		link := s.messageURL(msg.List, msg.Row.MessageID)
		fmt.Fprintf(w, `<entry>
<title>%s</title>
<link href="%s"/>
<id>%s</id>
<updated>%s</updated>
<author><name>%s</name></author>
<summary>%s</summary>
</entry>
`, html.EscapeString(feedTitle(msg)), link, link,
			msg.Row.Date.Time.Format(time.RFC3339),
			html.EscapeString(msg.Row.FromName.String),
			html.EscapeString(msg.Preview()))
	}

	fmt.Fprint(w, `</feed>`)
}

// handleRobotsTxt handles the robots.txt file.
func (s *Server) handleRobotsTxt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.Config.RobotsTxt == "disallow" {
		fmt.Fprint(w, `User-agent: *
Disallow: /
`)
		return
	}
	fmt.Fprintf(w, `User-agent: *
Allow: /
Sitemap: %s/-/sitemap.xml
`, s.Config.SiteURL)
}

// handleSitemap handles the sitemap.xml file. It lists the front page and
// every visible list; individual messages are far too many to enumerate.
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	lists, err := s.Archive.Lists(r.Context())
	if err != nil {
		slog.Warn("failed to get lists for sitemap", "error", err)
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)

	fmt.Fprintf(w, `<url>
<loc>%s/</loc>
</url>
`, s.Config.SiteURL)

	for _, entry := range lists {
		fmt.Fprintf(w, `<url>
<loc>%s/%s</loc>
`, s.Config.SiteURL, entry.List.Name)
		if entry.LastActivity.Valid {
			fmt.Fprintf(w, `<lastmod>%s</lastmod>
`, entry.LastActivity.Time.Format("2006-01-02"))
		}
		fmt.Fprint(w, `</url>
`)
	}

	fmt.Fprint(w, `</urlset>`)
}
