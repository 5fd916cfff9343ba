package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// blockedDomains lists sites known to block automated analysis
var blockedDomains = []string{
	"facebook.com",
	"twitter.com",
	"instagram.com",
	"linkedin.com",
	"amazon.com",
}

// ValidateURL normalizes raw user input into an absolute URL that is safe to analyze.
// Failures are returned as *ClassifiedError with kind INVALID_URL or ACCESS_DENIED.
func ValidateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 4 {
		return "", NewClassifiedError(KindInvalidURL, raw, "")
	}

	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "localhost") || strings.Contains(lower, "127.0.0.1") {
		return "", NewClassifiedError(KindInvalidURL, raw,
			"Localhost URLs cannot be analyzed. Please use a public website URL.")
	}
	if strings.HasPrefix(lower, "file://") {
		return "", NewClassifiedError(KindInvalidURL, raw,
			"Local files cannot be analyzed. Please use a website URL.")
	}

	host := hostnameOf(trimmed)
	for _, blocked := range blockedDomains {
		if strings.Contains(host, blocked) {
			return "", NewClassifiedError(KindAccessDenied, raw,
				fmt.Sprintf("%s typically blocks automated analysis. Try a different website.", host))
		}
	}

	candidate := trimmed
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		candidate = "https://" + trimmed
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" || u.Hostname() == "" || strings.ContainsAny(u.Host, " \t") {
		return "", NewClassifiedError(KindInvalidURL, raw, "").WithCause(err)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// hostnameOf returns the lowercase hostname of a possibly scheme-less URL
func hostnameOf(raw string) string {
	candidate := raw
	if !strings.HasPrefix(strings.ToLower(raw), "http") {
		candidate = "https://" + raw
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Hostname() == "" {
		return strings.ToLower(raw)
	}
	return strings.ToLower(u.Hostname())
}

// URLHash keys stored analyses: the hex MD5 of the analyzed URL
func URLHash(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}
