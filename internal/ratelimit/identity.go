package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient is the identity of requests that carry no client address
// headers. All of them share one bucket.
const UnknownClient = "unknown"

// ClientIdentity resolves the bucket identity of r: the first X-Forwarded-For
// entry, else X-Real-IP, else UnknownClient. RemoteAddr is deliberately not
// consulted; behind the proxy it is always the proxy.
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownClient
}
