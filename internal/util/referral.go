package util

import (
	"net/url"
	"strings"
)

// CleanReferralLink unwraps known redirector links and applies the partner
// tag to Amazon links. An empty amazonTag leaves Amazon links untouched.
// The second return value reports whether the link changed.
func CleanReferralLink(rawUrl, amazonTag string) (string, bool) {
	parsedUrl, err := url.Parse(rawUrl)
	if err != nil {
		return rawUrl, false
	}

	switch {
	case parsedUrl.Host == "click.linksynergy.com":
		murlParam := parsedUrl.Query().Get("murl")
		if murlParam != "" {
			return murlParam, true
		}
		return rawUrl, false

	case parsedUrl.Host == "go.redirectingat.com":
		urlParam := parsedUrl.Query().Get("url")
		if urlParam != "" {
			return urlParam, true
		}
		return rawUrl, false

	case strings.Contains(parsedUrl.Host, "amazon.") && amazonTag != "":
		queryParams := parsedUrl.Query()
		if queryParams.Get("tag") == amazonTag {
			return rawUrl, false
		}
		queryParams.Set("tag", amazonTag)
		parsedUrl.RawQuery = queryParams.Encode()
		return parsedUrl.String(), true

	default:
		return rawUrl, false
	}
}
