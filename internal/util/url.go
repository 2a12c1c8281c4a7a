package util

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped from outbound links.
var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid", "mc_cid", "mc_eid"}

// NormalizeURL forces an absolute http(s) URL and removes tracking parameters.
// Unparseable or relative input is returned unchanged together with an error.
func NormalizeURL(rawURL string) (string, error) {
	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL, err
	}
	if (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return rawURL, &url.Error{Op: "normalize", URL: rawURL, Err: errNotAbsolute}
	}
	parsedURL.Host = strings.ToLower(parsedURL.Host)
	parsedURL.Fragment = ""
	parsedURL.RawFragment = ""

	if parsedURL.RawQuery != "" {
		queryParams := parsedURL.Query()
		for _, param := range trackingParams {
			queryParams.Del(param)
		}
		parsedURL.RawQuery = queryParams.Encode()
	}
	return parsedURL.String(), nil
}

// ResolveURL resolves ref against base. Protocol-relative and rooted paths are
// supported; an empty ref yields "".
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ""
	}
	return b.ResolveReference(r).String()
}

type normalizeError string

func (e normalizeError) Error() string { return string(e) }

const errNotAbsolute = normalizeError("not an absolute http(s) URL")
