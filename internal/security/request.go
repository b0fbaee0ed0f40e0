package security

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/kursadbilgin/fitting-request/internal/domain"
)

var (
	blockedUserAgents = []string{"sqlmap", "nikto", "netsparker", "acunetix", "nessus"}

	suspiciousURIPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\.\.`),
		regexp.MustCompile(`(?i)union.*select`),
		regexp.MustCompile(`(?i)script.*alert`),
		regexp.MustCompile(`(?i)<script`),
		regexp.MustCompile(`(?i)javascript:`),
	}
)

// SecurityHeaders are set on every response.
func SecurityHeaders() map[string]string {
	return map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "SAMEORIGIN",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
}

// InspectRequest rejects scanner user agents and URIs carrying traversal or
// injection patterns. A rejected request is reported as a security incident.
func (s *Service) InspectRequest(ctx context.Context, uri, userAgent, ip string) error {
	ua := strings.ToLower(userAgent)
	for _, bad := range blockedUserAgents {
		if strings.Contains(ua, bad) {
			s.reportIncident(ctx, "malicious_user_agent",
				fmt.Sprintf("Blocked request with suspicious user agent: %s", userAgent),
				map[string]any{"ip": ip, "user_agent": userAgent},
			)
			return fmt.Errorf("%w: blocked user agent", domain.ErrSecurityCheck)
		}
	}

	for _, pattern := range suspiciousURIPatterns {
		if pattern.MatchString(uri) {
			s.reportIncident(ctx, "suspicious_request_pattern",
				fmt.Sprintf("Blocked request with suspicious pattern in URI: %s", uri),
				map[string]any{"ip": ip, "pattern": pattern.String()},
			)
			return fmt.Errorf("%w: suspicious request pattern", domain.ErrSecurityCheck)
		}
	}
	return nil
}

// TrustedProxies are the peers whose forwarding headers are believed.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts single addresses and CIDR ranges. Blank
// entries are skipped.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Contains reports whether ip falls inside one of the trusted ranges.
func (t TrustedProxies) Contains(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the first public address found in the X-Client-IP and
// X-Forwarded-For headers when the remote peer is a trusted proxy, else the
// remote address.
func ClientIP(header func(string) string, remoteAddr string, trusted TrustedProxies) string {
	if remoteAddr == "" {
		return "unknown"
	}
	if !trusted.Contains(remoteAddr) {
		return remoteAddr
	}
	for _, name := range []string{"X-Client-IP", "X-Forwarded-For"} {
		for _, candidate := range strings.Split(header(name), ",") {
			addr, err := netip.ParseAddr(strings.TrimSpace(candidate))
			if err != nil {
				continue
			}
			if isPublic(addr) {
				return addr.String()
			}
		}
	}
	return remoteAddr
}

func isPublic(addr netip.Addr) bool {
	return addr.IsGlobalUnicast() && !addr.IsPrivate() && !addr.IsLoopback()
}

// RandomString returns n random hex characters.
func RandomString(n int) string {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(buf)[:n]
}
