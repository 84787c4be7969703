package domain

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

var (
	spaceRun     = regexp.MustCompile(` +`)
	blankLineRun = regexp.MustCompile(`\n\s*\n\s*\n+`)
	lineHyphen   = regexp.MustCompile(`-\s*\n\s*`)
	anyWS        = regexp.MustCompile(`\s+`)
)

// CleanText normalizes abstract text exported from reference managers:
// HTML markup is stripped, the encoding is normalized to NFC, PDF-extraction
// artifacts (form feeds, end-of-line hyphenation) are removed, and
// whitespace is collapsed.
func CleanText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	cleaned := stripHTML(text)
	cleaned = norm.NFC.String(cleaned)

	cleaned = strings.ReplaceAll(cleaned, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\f", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")

	cleaned = lineHyphen.ReplaceAllString(cleaned, "")
	cleaned = blankLineRun.ReplaceAllString(cleaned, "\n\n")
	cleaned = spaceRun.ReplaceAllString(cleaned, " ")

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// CleanTitle normalizes a title to a single line without a trailing period.
func CleanTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	cleaned := stripHTML(title)
	cleaned = norm.NFC.String(cleaned)
	cleaned = anyWS.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	return strings.TrimSuffix(cleaned, ".")
}

// stripHTML drops markup such as <i>, <sub> and entity noise common in
// database exports. Plain text passes through unchanged.
func stripHTML(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}
	return doc.Text()
}
