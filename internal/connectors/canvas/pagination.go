package canvas

import (
	"net/url"
	"regexp"
	"strings"
)

// linkRegex matches Link header entries: <url>; rel="type".
var linkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// ParseNextLink extracts the "next" URL from a Link header.
// Returns empty string if no next link is found.
func ParseNextLink(linkHeader string) string {
	return ParseAllLinks(linkHeader)["next"]
}

// ParseAllLinks extracts all URLs from a Link header by relationship type.
// Canvas sends current, next, prev, first and last.
func ParseAllLinks(linkHeader string) map[string]string {
	links := make(map[string]string)
	if linkHeader == "" {
		return links
	}

	for _, part := range strings.Split(linkHeader, ",") {
		matches := linkRegex.FindStringSubmatch(strings.TrimSpace(part))
		if len(matches) == 3 {
			links[matches[2]] = matches[1]
		}
	}

	return links
}

// HasNextPage checks if there is a next page available.
func HasNextPage(linkHeader string) bool {
	return ParseNextLink(linkHeader) != ""
}

// sameHost reports whether next points at the same scheme and host as base.
// The bearer token must never follow a link to another host.
func sameHost(base *url.URL, next string) bool {
	u, err := url.Parse(next)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, base.Host) && u.Scheme == base.Scheme
}
