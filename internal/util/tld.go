package util

import (
	"net/url"
	"strings"
)

var KnownTwoPartTLDs = map[string]bool{
	"co.uk": true, "com.au": true, "co.jp": true, "co.nz": true, "com.br": true,
	"org.uk": true, "gov.uk": true, "ac.uk": true, "com.cn": true, "net.cn": true,
	"org.cn": true, "co.za": true, "com.es": true, "com.mx": true, "com.sg": true,
	"co.in": true, "ltd.uk": true, "plc.uk": true, "net.au": true, "org.au": true,
	"com.tr": true, "co.il": true, "com.pl": true, "com.be": true,
}

// GetDomain returns the registrable domain of rawURL ("sub.amazon.nl" -> "amazon.nl").
// It returns "" when rawURL has no host.
func GetDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	n := 2
	if KnownTwoPartTLDs[strings.Join(parts[len(parts)-2:], ".")] {
		n = 3
	}
	if len(parts) < n {
		return host
	}
	return strings.Join(parts[len(parts)-n:], ".")
}

// MerchantFromDomain derives a display name from a URL's domain,
// e.g. "https://www.coolblue.nl/x" -> "Coolblue".
func MerchantFromDomain(rawURL string) string {
	domain := GetDomain(rawURL)
	if domain == "" {
		return ""
	}
	name, _, _ := strings.Cut(domain, ".")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
