// Package metadata resolves the client address and user agent of a request.
package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"inclusao/pkg/requestcontext"
)

// maxForwardedLength bounds X-Forwarded-For before it is parsed.
const maxForwardedLength = 500

// Middleware puts the client IP and User-Agent in the request context.
// Forwarding headers are honoured only from trusted proxies.
type Middleware struct {
	trusted []netip.Prefix
}

// NewMiddleware parses CIDR strings; invalid entries are skipped.
func NewMiddleware(trustedProxies []string) *Middleware {
	m := &Middleware{}
	for _, raw := range trustedProxies {
		if p, err := netip.ParsePrefix(strings.TrimSpace(raw)); err == nil {
			m.trusted = append(m.trusted, p)
		}
	}
	return m
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), m.clientIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) clientIP(r *http.Request) string {
	remote, ok := remoteAddr(r.RemoteAddr)
	if !ok {
		return "unknown"
	}
	if !m.isTrusted(remote) {
		return remote.String()
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		xff = r.Header.Get("X-Real-IP")
	}
	if xff == "" || len(xff) > maxForwardedLength {
		return remote.String()
	}
	first, _, _ := strings.Cut(xff, ",")
	client, err := netip.ParseAddr(strings.TrimSpace(first))
	if err != nil {
		return remote.String()
	}
	return client.String()
}

func (m *Middleware) isTrusted(addr netip.Addr) bool {
	for _, p := range m.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteAddr(raw string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(raw); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}
