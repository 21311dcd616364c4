package states

import (
	"regexp"
	"strings"
)

var articlePathPattern = regexp.MustCompile(`/article/([A-Za-z0-9_-]+)`)

// ExtractArticleID pulls an article ID out of a text message that contains a
// link to an article page on siteURL. Returns the empty string when the text
// carries no such link.
func ExtractArticleID(siteURL, text string) string {
	host := strings.TrimPrefix(siteURL, "https://")
	host = strings.TrimPrefix(host, "http://")
	if host == "" || !strings.Contains(text, host) {
		return ""
	}

	idx := strings.Index(text, host)
	m := articlePathPattern.FindStringSubmatch(text[idx:])
	if m == nil {
		return ""
	}
	return m[1]
}
