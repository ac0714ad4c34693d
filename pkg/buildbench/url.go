package buildbench

import (
	"net/url"
	"strings"
)

// PagePrefix is the path under which the service shows a stored build
const PagePrefix = "/b/"

// PageURL returns the web page of build id on the service at baseURL
func PageURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + PagePrefix + url.PathEscape(id)
}

// ParseIdentity accepts a bare build id or a build page URL and returns
// the id. It reports false for input that names no build.
func ParseIdentity(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	if !strings.Contains(input, "://") {
		if strings.ContainsAny(input, "/#?") {
			return "", false
		}
		return input, true
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", false
	}
	path := strings.TrimRight(u.Path, "/")
	idx := strings.LastIndex(path, PagePrefix)
	if idx < 0 {
		return "", false
	}
	id, err := url.PathUnescape(path[idx+len(PagePrefix):])
	if err != nil || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
