// Package renderer converts archived mail and list descriptions to HTML.
//
// Message bodies are plain text and stay plain text: rendering escapes
// them, wraps quoted lines in depth-classed spans and turns URLs and
// message-id references into links. Markdown is only used for the prose
// the operator writes (site and list descriptions).
package renderer

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// maxQuoteDepth caps the quote class; deeper nesting reuses the last one.
const maxQuoteDepth = 3

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"']+`)
	msgIDPattern = regexp.MustCompile(`<([^<>\s]+@[^<>\s]+)>`)
)

// Renderer handles message body and markdown to HTML conversion.
type Renderer struct {
	markdown goldmark.Markdown
}

// New creates a new Renderer.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithXHTML(),
		),
	)
	return &Renderer{markdown: md}
}

// Markdown renders operator-written markdown (site and list
// descriptions). Raw HTML in the source is not passed through.
func (r *Renderer) Markdown(source string) template.HTML {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return template.HTML("<p>" + html.EscapeString(source) + "</p>")
	}
	return template.HTML(buf.String())
}

// Body renders a plain-text message body for display inside a <pre>.
// Quoted lines get a depth class, URLs become links and message-id
// references link into the archive of list. An empty list disables
// message-id linking.
func (r *Renderer) Body(list, body string) template.HTML {
	var b strings.Builder
	b.Grow(len(body) + len(body)/4)
	for i, line := range strings.Split(body, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		if depth := quoteDepth(line); depth > 0 {
			if depth > maxQuoteDepth {
				depth = maxQuoteDepth
			}
			fmt.Fprintf(&b, `<span class="quote quote-%d">`, depth)
			linkify(&b, list, line)
			b.WriteString("</span>")
		} else {
			linkify(&b, list, line)
		}
	}
	return template.HTML(b.String())
}

// quoteDepth counts the leading '>' markers of a quoted line. Markers may
// be packed (">>>") or spaced ("> > >"); anything else is depth zero.
func quoteDepth(line string) int {
	depth := 0
	for i := 0; i < len(line); {
		if line[i] != '>' {
			break
		}
		depth++
		i++
		if i < len(line) && line[i] == ' ' {
			i++
		}
	}
	return depth
}

// linkify writes line to b with URLs and message-id references turned
// into anchors. Everything else is HTML-escaped.
func linkify(b *strings.Builder, list, line string) {
	for line != "" {
		uloc := urlPattern.FindStringIndex(line)
		mloc := msgIDPattern.FindStringSubmatchIndex(line)

		switch {
		case uloc == nil && mloc == nil:
			b.WriteString(html.EscapeString(line))
			return

		case mloc == nil || (uloc != nil && uloc[0] <= mloc[0]):
			b.WriteString(html.EscapeString(line[:uloc[0]]))
			u := trimURL(line[uloc[0]:uloc[1]])
			esc := html.EscapeString(u)
			fmt.Fprintf(b, `<a href="%s" rel="nofollow">%s</a>`, esc, esc)
			line = line[uloc[0]+len(u):]

		default:
			b.WriteString(html.EscapeString(line[:mloc[0]]))
			id := line[mloc[2]:mloc[3]]
			if list != "" && looksLikeMessageID(id) {
				fmt.Fprintf(b, `<a href="/%s/m/%s">&lt;%s&gt;</a>`,
					list, url.PathEscape(id), html.EscapeString(id))
			} else {
				b.WriteString(html.EscapeString(line[mloc[0]:mloc[1]]))
			}
			line = line[mloc[1]:]
		}
	}
}

// trimURL strips trailing punctuation a sentence leaves stuck to a URL.
// A closing paren stays only when the URL itself opened one.
func trimURL(s string) string {
	for len(s) > 0 {
		switch s[len(s)-1] {
		case '.', ',', ';', ':', '!', '?', '\'', '"', ']', '}':
			s = s[:len(s)-1]
		case ')':
			if strings.Count(s, "(") >= strings.Count(s, ")") {
				return s
			}
			s = s[:len(s)-1]
		default:
			return s
		}
	}
	return s
}

// looksLikeMessageID separates generated message ids from plain mail
// addresses. Both appear as <local@host> in bodies; a plain-word local
// ("alice@example.org") is almost always an address, while generated ids
// carry digits or punctuation in the local part.
func looksLikeMessageID(id string) bool {
	at := strings.IndexByte(id, '@')
	if at <= 0 || at == len(id)-1 {
		return false
	}
	local, host := id[:at], id[at+1:]
	if !strings.Contains(host, ".") {
		return false
	}
	return strings.ContainsAny(local, "0123456789.%+=/-")
}
