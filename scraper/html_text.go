// scraper/html_text.go
package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	breakTags    = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphEnd = regexp.MustCompile(`(?i)</p\s*>|</li\s*>|</div\s*>|</h[1-6]\s*>`)
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	spaceRuns    = regexp.MustCompile(`[ \t\f\v]+`)
)

// HTMLToText converts a notice description to plain text: block ends become newlines, every other tag is
// dropped and whitespace is tidied. Input without markup is only tidied.
func HTMLToText(htmlStr string) string {
	if strings.TrimSpace(htmlStr) == "" {
		return ""
	}

	text := htmlStr
	if strings.ContainsRune(text, '<') || strings.ContainsRune(text, '&') {
		text = breakTags.ReplaceAllString(text, "\n")
		text = paragraphEnd.ReplaceAllString(text, "\n\n")

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err == nil {
			text = doc.Text()
		}
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, " ", " ")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, " \n", "\n")
	text = strings.ReplaceAll(text, "\n ", "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
