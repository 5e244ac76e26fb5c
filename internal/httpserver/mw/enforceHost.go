package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/toomanytabs/internal/logger"
	"github.com/MrSnakeDoc/toomanytabs/internal/utils"
)

// EnforceHost allows requests only if the Host header (port ignored) matches
// one of the allowed hosts. Supports wildcard patterns like "*.example.com".
// If allowedHosts is empty, it acts as a passthrough.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(allowedHosts) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := strings.ToLower(utils.ParseHostNoPort(r.Host))
			for _, pattern := range allowedHosts {
				if matchHost(host, strings.ToLower(pattern)) {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Debug("request rejected by host filter",
				logger.String("host", r.Host),
				logger.String("path", r.URL.Path))
			writeForbidden(w)
		})
	}
}

// matchHost checks if host matches pattern (supports wildcard *.example.com)
func matchHost(host, pattern string) bool {
	if host == pattern {
		return true
	}
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return strings.HasSuffix(host, suffix) && len(host) > len(suffix)
	}
	return false
}
