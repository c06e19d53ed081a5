package enrich

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// extractText pulls readable article text out of an HTML document.
// Only paragraph content is kept; navigation, scripts, captions and
// other non-paragraph markup are dropped. Returns "" when the document
// cannot be parsed.
func extractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, header, footer, aside, figure").Remove()

	// Prefer paragraphs inside an article element when present.
	scope := doc.Selection
	if article := doc.Find("article"); article.Length() > 0 {
		scope = article.First()
	}

	var paragraphs []string
	scope.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	return strings.Join(paragraphs, "\n\n")
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
