package internal

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	octetPattern      = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
	whitespacePattern = regexp.MustCompile(`[\r\n\t ]+`)
)

// escAttr escapes a value for use inside a double-quoted HTML attribute.
func escAttr(s string) string {
	return html.EscapeString(s)
}

// sanitizeText strips markup, percent-encoded octets and surplus whitespace from user input.
func sanitizeText(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, "")
	s = octetPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// escURL returns an attribute-safe URL, or "" when the scheme is not allowed.
func escURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
	default:
		return ""
	}
	return escAttr(u.String())
}
