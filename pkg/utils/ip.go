package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller address as reported by the proxy chain. The
// raw header value is returned untouched so CheckClientIP can reject
// multi-hop values instead of silently picking one.
func ClientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		return xff
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// CheckClientIP is a sanity check on the reported client address, not an
// access control. It rejects empty, malformed and multi-hop values, and
// loopback/private/link-local ranges unless allowPrivate is set.
func CheckClientIP(raw string, allowPrivate bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, ", ") {
		return false
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	if addr.IsUnspecified() || addr.IsMulticast() {
		return false
	}
	if allowPrivate {
		return true
	}
	return !addr.IsLoopback() && !addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast() && !addr.IsLinkLocalMulticast()
}
