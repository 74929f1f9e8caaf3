// Package sanitize turns untrusted markup into plain text.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
	looksLikeHTML  = regexp.MustCompile(`(?i)<(html|body|div|p|br|table|span|td)\b`)
	blankLineRuns  = regexp.MustCompile(`\n{3,}`)
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags from a short user-supplied string.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = html.UnescapeString(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes a free-text field such as a note body.
func Text(s string) string {
	return StripHTML(s)
}

// IsHTML reports whether body appears to be an HTML document or fragment.
func IsHTML(body string) bool {
	return looksLikeHTML.MatchString(body)
}

// blockElements end the current line when opened or closed.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "table": true,
}

// HTMLToText renders an HTML e-mail body as plain text with one line per
// block element, so "Label: value" rows survive as separate lines.
// Script and style content is dropped.
func HTMLToText(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeLines(b.String())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
				continue
			}
			if blockElements[tag] {
				b.WriteByte('\n')
			} else if tag == "td" && tt == html.EndTagToken {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			b.WriteString(collapseSpaces(string(z.Text())))
		}
	}
}

func collapseSpaces(s string) string {
	return whitespaceRuns.ReplaceAllString(s, " ")
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	out := strings.Join(lines, "\n")
	out = trailingSpaces.ReplaceAllString(out, "\n")
	out = blankLineRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
