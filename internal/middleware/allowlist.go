package middleware

import (
	"net"
	"net/http"
	"strings"
)

// AllowCIDR restricts a route to clients inside one of the comma-separated
// networks. An empty or entirely invalid list denies everyone.
func AllowCIDR(cidrs string) func(http.Handler) http.Handler {
	var nets []*net.IPNet
	for _, c := range strings.Split(cidrs, ",") {
		if _, n, err := net.ParseCIDR(strings.TrimSpace(c)); err == nil {
			nets = append(nets, n)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := net.ParseIP(clientHost(r))
			for _, n := range nets {
				if ip != nil && n.Contains(ip) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
