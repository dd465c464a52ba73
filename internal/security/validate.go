// Package security provides input validation for target URLs. URL lists come
// from user-supplied documents, so every entry is treated as untrusted: only
// http(s) targets on public addresses are navigated.
package security

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// URL validation errors.
var (
	ErrInvalidURL       = errors.New("invalid URL")
	ErrBlockedScheme    = errors.New("URL scheme not allowed")
	ErrPrivateIPBlocked = errors.New("private/internal IP addresses are not allowed")
	ErrLocalhostBlocked = errors.New("localhost URLs are not allowed")
	ErrMetadataBlocked  = errors.New("cloud metadata URLs are not allowed")
)

// allowedSchemes defines the permitted URL schemes.
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// blockedHosts contains hostnames that should never be navigated.
var blockedHosts = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
	"metadata":                 true,
	"instance-data":            true,
}

// cloudMetadataIPs contains IP addresses used by cloud provider metadata
// services.
var cloudMetadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"), // AWS, GCP, Azure, DigitalOcean
	net.ParseIP("169.254.170.2"),   // AWS ECS task metadata
	net.ParseIP("100.100.100.200"), // Alibaba Cloud
	net.ParseIP("fd00:ec2::254"),   // AWS IPv6 metadata
}

// ValidateURL checks whether a URL is safe to navigate to. It blocks
// non-http(s) schemes, localhost and loopback in all spellings, private and
// link-local ranges, cloud metadata IPs, and numeric IP encodings (decimal,
// octal, hex) used to smuggle blocked addresses past naive filters. When
// allowPrivate is true the private-range checks are skipped, for capturing
// staging sites on internal networks.
func ValidateURL(rawURL string, allowPrivate bool) error {
	if rawURL == "" {
		return ErrInvalidURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return ErrBlockedScheme
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return ErrInvalidURL
	}
	if allowPrivate {
		return nil
	}

	if blockedHosts[hostname] || isLocalhostHostname(hostname) {
		return ErrLocalhostBlocked
	}

	if ip := parseIPWithNormalization(hostname); ip != nil {
		return validateIP(normalizeIPv4Mapped(ip))
	}

	// For hostnames, resolve and check every address. A DNS failure is
	// allowed through: the browser reports it with a better error.
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil
	}
	for _, resolved := range ips {
		if err := validateIP(normalizeIPv4Mapped(resolved)); err != nil {
			return err
		}
	}
	return nil
}

// parseIPWithNormalization parses an IP address string, handling the encoding
// tricks used to bypass filters: single decimal (2130706433), octal or hex
// octets (0177.0.0.1, 0x7f.0.0.1) and shortened forms (127.1).
func parseIPWithNormalization(hostname string) net.IP {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip
	}

	if num, err := strconv.ParseUint(hostname, 10, 32); err == nil {
		return net.IPv4(byte(num>>24), byte(num>>16), byte(num>>8), byte(num))
	}

	parts := strings.Split(hostname, ".")
	if len(parts) == 4 {
		var octets [4]byte
		for i, part := range parts {
			val, err := parseIntWithBase(part)
			if err != nil || val > 255 {
				return nil
			}
			octets[i] = byte(val)
		}
		return net.IPv4(octets[0], octets[1], octets[2], octets[3])
	}

	if len(parts) == 2 {
		first, err1 := parseIntWithBase(parts[0])
		second, err2 := parseIntWithBase(parts[1])
		if err1 == nil && err2 == nil && first <= 255 && second <= 0xFFFFFF {
			return net.IPv4(byte(first), byte(second>>16), byte(second>>8), byte(second))
		}
	}

	return nil
}

// parseIntWithBase parses a decimal, octal (0-prefixed) or hex (0x-prefixed)
// integer.
func parseIntWithBase(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty string")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	if strings.HasPrefix(s, "0") && len(s) > 1 {
		return strconv.ParseUint(s[1:], 8, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// normalizeIPv4Mapped converts IPv4-mapped IPv6 addresses (::ffff:x.x.x.x)
// to IPv4.
func normalizeIPv4Mapped(ip net.IP) net.IP {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4
	}
	return ip
}

// isLocalhostHostname checks if a hostname is a localhost variant.
func isLocalhostHostname(hostname string) bool {
	switch hostname {
	case "localhost", "localhost.localdomain", "local", "ip6-localhost", "ip6-loopback":
		return true
	}
	return strings.HasSuffix(hostname, ".localhost") || strings.HasPrefix(hostname, "localhost.")
}

// isLoopbackIP reports loopback for the entire 127.0.0.0/8 range and ::1.
func isLoopbackIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 127
	}
	return ip.Equal(net.IPv6loopback)
}

// validateIP checks if an IP address is safe to access.
func validateIP(ip net.IP) error {
	if isLoopbackIP(ip) {
		return ErrLocalhostBlocked
	}
	if ip.IsPrivate() {
		return ErrPrivateIPBlocked
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return ErrPrivateIPBlocked
	}
	for _, metadataIP := range cloudMetadataIPs {
		if ip.Equal(metadataIP) {
			return ErrMetadataBlocked
		}
	}
	if ip.IsUnspecified() {
		return ErrPrivateIPBlocked
	}
	return nil
}
