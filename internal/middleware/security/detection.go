// Package security resolves client addresses behind trusted proxies, flags
// probing requests and sets API response headers.
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"

	"fintrack/internal/log"
)

const (
	maxURLLength = 2048
	maxProxyHops = 6
)

var (
	probePatterns = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", "etc/passwd", "cmd.exe",
		"<script", "javascript:", "eval(", "union select",
	}
	scannerAgents  = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}
	refusedMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// DefaultTrustedProxies are loopback and the private ranges.
var DefaultTrustedProxies = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

// ParseProxies parses CIDR strings such as "10.0.0.0/8" or a bare address.
func ParseProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		if !strings.Contains(v, "/") {
			addr, err := netip.ParseAddr(v)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}

type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector rejects probing requests and works out which address a request
// came from. Forwarding headers count only when the direct peer is trusted.
type Detector struct {
	trusted    []netip.Prefix
	logger     *log.Logger
	suspicious atomic.Int64
}

// NewDetector trusts the given proxies, or DefaultTrustedProxies when none are given.
func NewDetector(logger *log.Logger, trusted ...netip.Prefix) *Detector {
	if logger == nil {
		logger = log.Discard()
	}
	if len(trusted) == 0 {
		trusted = DefaultTrustedProxies
	}
	return &Detector{
		trusted: trusted,
		logger:  logger.WithComponent(log.ComponentSecurity),
	}
}

// DetectSuspiciousRequest reports whether the request looks like a scanner or
// path-traversal probe, counting it when it does.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if !isProbe(r) {
		return false
	}
	d.suspicious.Add(1)
	return true
}

func isProbe(r *http.Request) bool {
	switch {
	case slices.Contains(refusedMethods, r.Method):
		return true
	case len(r.URL.String()) > maxURLLength:
		return true
	case strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxProxyHops:
		return true
	}
	return containsAny(strings.ToLower(r.URL.Path), probePatterns) ||
		containsAny(strings.ToLower(r.URL.RawQuery), probePatterns) ||
		containsAny(strings.ToLower(r.UserAgent()), scannerAgents)
}

func containsAny(s string, patterns []string) bool {
	return slices.ContainsFunc(patterns, func(p string) bool { return strings.Contains(s, p) })
}

// Middleware rejects suspicious requests with 400 and logs them.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			d.logger.WarnContext(r.Context(), "Suspicious request rejected",
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the caller's address. Behind a trusted proxy that is
// the first X-Forwarded-For entry, then X-Real-IP.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !d.trusts(peer) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(r.Header.Get("X-Real-IP")); err == nil {
		return addr.String()
	}
	return host
}

func (d *Detector) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	return slices.ContainsFunc(d.trusted, func(p netip.Prefix) bool { return p.Contains(addr) })
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: d.suspicious.Load()}
}
