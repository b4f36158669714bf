package mail

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var reBlankRuns = regexp.MustCompile(`\n{3,}`)

// HTMLToText renders an HTML part as plain text. It is the fallback for
// messages that carry no text/plain alternative: tags are stripped, block
// elements and <br> become line breaks, and runs of blank lines collapse.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, blockquote, pre, h1, h2, h3, h4, h5, h6").AfterHtml("\n")

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	lines := strings.Split(normalizeNewlines(text), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	return text + "\n", nil
}
