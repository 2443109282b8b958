package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// cleanText applies NFKC and collapses all whitespace runs to one space.
func cleanText(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// cleanLongText keeps paragraph breaks but strips any HTML the model added.
// Text without real HTML elements is left as written.
func cleanLongText(s string) string {
	s = norm.NFKC.String(s)
	if strings.Contains(s, "<") && strings.Contains(s, ">") {
		s = stripHTML(s)
	}

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func stripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	if doc.Find("*").FilterFunction(isMarkup).Length() == 0 {
		return s
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, h1, h2, h3, h4").AppendHtml("\n")
	return doc.Text()
}

// isMarkup reports whether sel is a known HTML element other than the
// document wrappers the parser always adds.
func isMarkup(_ int, sel *goquery.Selection) bool {
	n := sel.Get(0)
	switch n.Data {
	case "html", "head", "body":
		return false
	}
	return n.DataAtom != 0
}
