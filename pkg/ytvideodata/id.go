package ytvideodata

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	idPattern   = regexp.MustCompile(`(?:youtube\.com/watch\?.*v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`)
	barePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// ExtractID returns the 11 character video id from a watch, short, embed or
// shorts link, or from a bare id.
func ExtractID(raw string) (string, bool) {
	if m := idPattern.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}

	trimmed := strings.TrimSpace(raw)
	if barePattern.MatchString(trimmed) {
		return trimmed, true
	}

	return "", false
}

// IsDirectURL reports whether raw is an absolute http(s) URL that is not a
// streaming platform link.
func IsDirectURL(raw string) bool {
	if _, ok := ExtractID(raw); ok {
		return false
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
