package common

import (
	"net/url"
	"strings"
)

// CanonicalURL normalizes a URL for use as a document key: ensures a scheme,
// removes the query string and fragment, and strips any trailing slash.
// Invalid input is returned unchanged.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	return strings.TrimRight(parsed.String(), "/")
}

// DomainName extracts a readable site name from a URL, e.g. "tavily" from
// "https://www.tavily.com/about" becomes "Tavily".
func DomainName(raw string) string {
	parsed, err := url.Parse(CanonicalURL(raw))
	if err != nil || parsed.Host == "" {
		return "Website"
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	name := strings.Split(host, ".")[0]
	if name == "" {
		return "Website"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Domain returns the host portion of a URL, without the www prefix.
func Domain(raw string) string {
	parsed, err := url.Parse(CanonicalURL(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}
