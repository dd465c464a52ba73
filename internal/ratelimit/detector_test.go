package ratelimit

import (
	"strings"
	"testing"
	"time"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantCat  Category
	}{
		{
			name:     "cloudflare 1015",
			body:     `<html><body><span class="code-label">Error code: 1015</span> You are being rate limited</body></html>`,
			wantCode: "CF_1015",
			wantCat:  CategoryRateLimit,
		},
		{
			name:     "cloudflare 1020",
			body:     `<div>Error code 1020: Access denied</div>`,
			wantCode: "CF_1020",
			wantCat:  CategoryAccessDenied,
		},
		{
			name:     "cloudflare geo restriction",
			body:     `Error code: 1009 - The owner of this website has banned the country`,
			wantCode: "CF_1009",
			wantCat:  CategoryGeoBlocked,
		},
		{
			name:     "http 429 page",
			body:     `<h1>429 Too Many Requests</h1>`,
			wantCode: "TOO_MANY_REQUESTS",
			wantCat:  CategoryRateLimit,
		},
		{
			name:     "generic block",
			body:     `<p>Sorry, you have been blocked from accessing this resource.</p>`,
			wantCode: "BLOCKED",
			wantCat:  CategoryAccessDenied,
		},
		{
			name:     "region lock",
			body:     `This product is not available in your country.`,
			wantCode: "GEO_BLOCKED",
			wantCat:  CategoryGeoBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Detect(tt.body)
			if !info.Detected {
				t.Fatal("Expected detection")
			}
			if info.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", info.Code, tt.wantCode)
			}
			if info.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", info.Category, tt.wantCat)
			}
		})
	}
}

func TestDetectCleanPage(t *testing.T) {
	body := `<html><body><h1>Wireless Headphones</h1><span class="price">$149.99</span></body></html>`
	if info := Detect(body); info.Detected {
		t.Errorf("Clean product page flagged as %q", info.Code)
	}
}

func TestDetectSpecificBeatsGeneric(t *testing.T) {
	// A 1015 page also contains the words "rate limited"; the coded pattern
	// must win.
	body := `Error code: 1015. You are being rate limited.`
	if info := Detect(body); info.Code != "CF_1015" {
		t.Errorf("Code = %q, want CF_1015", info.Code)
	}
}

func TestDetectTruncatesLargeBody(t *testing.T) {
	body := strings.Repeat("x", maxBodyLenForRegex) + "Error code: 1015"
	if info := Detect(body); info.Detected {
		t.Error("Fingerprint past the truncation limit should not match")
	}
}

func TestClampBackoff(t *testing.T) {
	if got := ClampBackoff(time.Second, 5*time.Second, time.Minute); got != 5*time.Second {
		t.Errorf("Clamp below min = %v", got)
	}
	if got := ClampBackoff(5*time.Minute, 5*time.Second, time.Minute); got != time.Minute {
		t.Errorf("Clamp above max = %v", got)
	}
	if got := ClampBackoff(30*time.Second, 5*time.Second, time.Minute); got != 30*time.Second {
		t.Errorf("In-range clamp = %v", got)
	}
}
