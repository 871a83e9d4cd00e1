package security

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

var loopback = mustCIDR("127.0.0.0/8")

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic("invalid CIDR " + cidr + ": " + err.Error())
	}
	return network
}

// ClientIP returns the peer address. Forwarding headers are honored only
// when the direct peer is on the loopback interface, such as a local proxy.
func ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !(loopback.Contains(parsed) || parsed.Equal(net.IPv6loopback)) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

// SameOrigin rejects state-changing requests whose Origin header names a
// different host. Requests without an Origin header pass.
func SameOrigin(onReject func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || originMatches(r) {
				next.ServeHTTP(w, r)
				return
			}
			if onReject != nil {
				onReject(w, r)
				return
			}
			http.Error(w, "Cross-origin request rejected", http.StatusForbidden)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func originMatches(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
