// Package ratelimit classifies denial pages served by target sites: rate
// limiting, hard access denials and geo-restrictions. The classification
// carries a suggested backoff so the capture loop can slow down on domains
// that are pushing back.
package ratelimit

import (
	"regexp"
	"strings"
	"time"
)

// maxBodyLenForRegex limits the markup size fed to the regexes. 100KB covers
// every denial page while keeping pathological inputs cheap.
const maxBodyLenForRegex = 100 * 1024

// Category is the broad class of a detected denial.
type Category string

const (
	CategoryRateLimit    Category = "rate_limit"
	CategoryAccessDenied Category = "access_denied"
	CategoryGeoBlocked   Category = "geo_blocked"
)

// denialPattern pairs a markup fingerprint with its classification. Patterns
// use [^<]{0,N} instead of .{0,N} so matching never backtracks across HTML
// element boundaries.
type denialPattern struct {
	pattern *regexp.Regexp
	code    string
	cat     Category
	backoff time.Duration
	desc    string
}

var denialPatterns = []denialPattern{
	// Cloudflare error codes, most specific first.
	{
		pattern: regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1015`),
		code:    "CF_1015",
		cat:     CategoryRateLimit,
		backoff: 60 * time.Second,
		desc:    "Cloudflare rate limit exceeded",
	},
	{
		pattern: regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1020`),
		code:    "CF_1020",
		cat:     CategoryAccessDenied,
		backoff: 30 * time.Second,
		desc:    "Cloudflare access denied - suspicious request",
	},
	{
		pattern: regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1009`),
		code:    "CF_1009",
		cat:     CategoryGeoBlocked,
		backoff: 0, // no retry will help
		desc:    "Cloudflare geo-restriction",
	},
	{
		pattern: regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1010`),
		code:    "CF_1010",
		cat:     CategoryAccessDenied,
		backoff: 30 * time.Second,
		desc:    "Cloudflare browser signature rejected",
	},
	{
		pattern: regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}100[678]`),
		code:    "CF_BANNED_IP",
		cat:     CategoryAccessDenied,
		backoff: 30 * time.Second,
		desc:    "Cloudflare IP ban",
	},

	// Generic fingerprints, checked after the coded ones.
	{
		pattern: regexp.MustCompile(`(?i)too\s{1,5}many\s{1,5}requests`),
		code:    "TOO_MANY_REQUESTS",
		cat:     CategoryRateLimit,
		backoff: 10 * time.Second,
		desc:    "Too many requests",
	},
	{
		pattern: regexp.MustCompile(`(?i)rate\s{0,3}limit`),
		code:    "RATE_LIMITED",
		cat:     CategoryRateLimit,
		backoff: 10 * time.Second,
		desc:    "Generic rate limit",
	},
	{
		pattern: regexp.MustCompile(`(?i)access\s{1,5}denied`),
		code:    "ACCESS_DENIED",
		cat:     CategoryAccessDenied,
		backoff: 5 * time.Second,
		desc:    "Generic access denied",
	},
	{
		pattern: regexp.MustCompile(`(?i)you\s{1,5}(have\s{1,5}been\s{1,5})?blocked`),
		code:    "BLOCKED",
		cat:     CategoryAccessDenied,
		backoff: 15 * time.Second,
		desc:    "Request blocked",
	},
	{
		pattern: regexp.MustCompile(`(?i)not\s{1,5}available\s{1,5}in\s{1,5}your\s{1,5}(country|region)`),
		code:    "GEO_BLOCKED",
		cat:     CategoryGeoBlocked,
		backoff: 0,
		desc:    "Content geo-restricted",
	},
}

// Info describes a detected denial page.
type Info struct {
	Detected bool          `json:"detected"`
	Code     string        `json:"code,omitempty"`
	Category Category      `json:"category,omitempty"`
	Backoff  time.Duration `json:"-"`
	Detail   string        `json:"detail,omitempty"`
}

// Detect scans page markup for denial fingerprints. Patterns are ordered by
// specificity and the first match wins. A page that merely mentions rate
// limits in prose will false-positive; callers should only consult this after
// a capture already looks wrong (challenge unsolved, blocked title).
func Detect(body string) Info {
	if len(body) > maxBodyLenForRegex {
		body = body[:maxBodyLenForRegex]
	}

	for _, p := range denialPatterns {
		if p.pattern.MatchString(body) {
			return Info{
				Detected: true,
				Code:     p.code,
				Category: p.cat,
				Backoff:  p.backoff,
				Detail:   p.desc,
			}
		}
	}

	// A bare Cloudflare page with no recognizable error code is still a
	// denial when nothing else matched and the branding is present.
	if strings.Contains(strings.ToLower(body), "cloudflare") &&
		strings.Contains(strings.ToLower(body), "sorry, you have been blocked") {
		return Info{
			Detected: true,
			Code:     "CF_BLOCKED",
			Category: CategoryAccessDenied,
			Backoff:  30 * time.Second,
			Detail:   "Cloudflare block page",
		}
	}

	return Info{}
}

// ClampBackoff bounds a suggested backoff to the given range.
func ClampBackoff(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
