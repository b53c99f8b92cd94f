package checker

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	consts "github.com/khanhnv2901/walletscan/internal/shared/constants"
	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

var (
	schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*$`)
	schemePrefix  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
	domainPattern = regexp.MustCompile(`^(?:[A-Za-z0-9-]{1,63}\.)+[A-Za-z]{2,63}$`)
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // Original target string
	Scheme   string // http, https, or empty
	Host     string // Hostname (without protocol, path, port)
	Port     string // Port if specified
	Path     string // Path if specified
	FullURL  string // Full normalized URL (for HTTP requests)
}

// ValidateTarget reports whether raw is acceptable as a scan target: either a
// well-formed absolute URL or a bare domain with an optional scheme and path.
// It never performs network access.
func ValidateTarget(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return false
	}
	return isAbsoluteURL(raw) || isDomain(raw)
}

func isAbsoluteURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return schemePattern.MatchString(parsed.Scheme) && parsed.Hostname() != ""
}

func isDomain(raw string) bool {
	host := schemePrefix.ReplaceAllString(raw, "")
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	return domainPattern.MatchString(host)
}

// NormalizeTarget validates raw and returns a protocol-qualified URL.
// Bare domains get the default scheme.
func NormalizeTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !ValidateTarget(raw) {
		return "", fmt.Errorf("%w: %q", scanerrors.ErrInvalidTarget, raw)
	}
	info := ParseTarget(raw)
	if info.Host == "" {
		return "", fmt.Errorf("%w: %q", scanerrors.ErrInvalidTarget, raw)
	}
	return info.FullURL, nil
}

// ParseTarget parses a target string into structured components.
// This handles various input formats:
//   - example.com
//   - http://example.com
//   - https://example.com:443/path
//   - example.com:8080
func ParseTarget(target string) *TargetInfo {
	info := &TargetInfo{
		Original: target,
	}

	parsed, err := url.Parse(target)

	// A scheme containing dots is really a host followed by a port ("example.com:8080").
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") || parsed.Host == "" {
		parsed, _ = url.Parse(consts.DefaultScheme + "://" + target)
	}

	if parsed != nil {
		info.Scheme = parsed.Scheme
		info.Host = parsed.Hostname()
		info.Port = parsed.Port()
		info.Path = parsed.Path
		info.FullURL = parsed.String()
	}

	return info
}

// ExtractHost extracts just the hostname from a target.
// This is useful for DNS lookups where we need the bare hostname.
func ExtractHost(target string) string {
	return ParseTarget(target).Host
}
