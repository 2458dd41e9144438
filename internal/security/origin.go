package security

import (
	"net"
	"net/http"
	"strings"
)

// LocalOrigin rejects state-changing requests sent from foreign web pages.
// Browsers attach an Origin header to cross-site requests, which would let a
// remote page drive a loopback-bound API through the user's browser.
type LocalOrigin struct {
	Addr string
}

// Middleware allows safe methods and requests without an Origin header, and
// requires any declared origin to match the server's own address.
func (l LocalOrigin) Middleware(next http.Handler) http.Handler {
	allowed := localOrigins(l.Addr)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := allowed[strings.ToLower(origin)]; !ok {
			http.Error(w, "cross-origin request rejected", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func localOrigins(addr string) map[string]struct{} {
	origins := map[string]struct{}{}
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return origins
	}
	for _, h := range []string{host, "localhost", "127.0.0.1", "::1"} {
		if h == "" {
			continue
		}
		if strings.Contains(h, ":") {
			h = "[" + h + "]"
		}
		origins["http://"+strings.ToLower(h)+":"+port] = struct{}{}
	}
	return origins
}
